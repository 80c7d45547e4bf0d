package uid

import (
	"fmt"
	"hash/fnv"
	"os"

	"github.com/bwmarrin/snowflake"
)

// Snowflake generates roughly time-ordered int64 ids.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake creates a generator whose node id is derived from the hostname.
func NewSnowflake() (*Snowflake, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("uid: resolve hostname: %w", err)
	}
	return NewSnowflakeNode(nodeIDFrom(host))
}

// NewSnowflakeNode creates a generator for an explicit node id (0-1023).
func NewSnowflakeNode(nodeID int64) (*Snowflake, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("uid: snowflake node %d: %w", nodeID, err)
	}
	return &Snowflake{node: node}, nil
}

// Generate returns the next id.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}

func nodeIDFrom(host string) int64 {
	h := fnv.New32a()
	h.Write([]byte(host))
	return int64(h.Sum32() % 1024)
}
