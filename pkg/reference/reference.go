// Package reference issues human readable, globally unique payment reference
// numbers of the form PREFIX-YYYY-NNNNNNNNNNNN backed by snowflake IDs.
package reference

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// DefaultPrefix marks official receipts.
const DefaultPrefix = "OR"

// Generator hands out reference numbers. It is safe for concurrent use.
type Generator struct {
	node   *snowflake.Node
	prefix string
}

// NewGenerator creates a generator for the given snowflake node (0-1023).
func NewGenerator(nodeID int64, prefix string) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Generator{node: node, prefix: strings.ToUpper(prefix)}, nil
}

// Next returns a new reference number stamped with the year of at.
func (g *Generator) Next(at time.Time) string {
	return fmt.Sprintf("%s-%d-%012d", g.prefix, at.Year(), g.node.Generate().Int64())
}

// Parse splits a reference number into its prefix, year and snowflake ID.
func Parse(ref string) (prefix string, year int, id int64, err error) {
	parts := strings.Split(ref, "-")
	if len(parts) != 3 {
		return "", 0, 0, fmt.Errorf("invalid reference %q", ref)
	}
	year, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid reference year %q", parts[1])
	}
	id, err = strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid reference id %q", parts[2])
	}
	return parts[0], year, id, nil
}
