package continuous

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shutter-network/receipt-watcher/receipts"
	"github.com/shutter-network/receipt-watcher/utils"
)

// ReadTargets parses one target per line, either a bare transaction hash on
// defaultChain or "chainID,hash[,from[,to[,data]]]". Blank lines and lines
// starting with # are skipped.
func ReadTargets(r io.Reader, defaultChain uint64) ([]Target, error) {
	scanner := bufio.NewScanner(r)
	var result []Target
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		target, err := parseTarget(line, defaultChain)
		if err != nil {
			return result, fmt.Errorf("line %d: %w", lineNo, err)
		}
		result = append(result, target)
	}
	return result, scanner.Err()
}

func parseTarget(line string, defaultChain uint64) (Target, error) {
	fields := strings.Split(line, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if len(fields) > 5 {
		return Target{}, fmt.Errorf("too many fields (%d)", len(fields))
	}

	target := Target{ChainID: defaultChain}
	if len(fields) == 1 {
		target.TxHash = fields[0]
	} else {
		chainID, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return Target{}, fmt.Errorf("invalid chain id %q: %w", fields[0], err)
		}
		target.ChainID = chainID
		target.TxHash = fields[1]
	}
	if target.ChainID == 0 {
		return Target{}, fmt.Errorf("no chain id for %s", target.TxHash)
	}
	if _, ok := utils.NormalizeTxHash(target.TxHash); !ok {
		return Target{}, fmt.Errorf("invalid transaction hash %q", target.TxHash)
	}

	hints := make([]string, 3)
	if len(fields) > 2 {
		copy(hints, fields[2:])
	}
	target.Tracking = receipts.Tracking{From: hints[0], To: hints[1], Data: hints[2]}
	return target, nil
}
