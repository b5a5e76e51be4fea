package uid

import (
	"fmt"
	"hash/fnv"
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
)

// Snowflake generates time-ordered 63-bit identifiers.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake returns a generator whose node number is derived from the host name,
// so that replicas behind the same gate produce distinct sequences.
func NewSnowflake() (*Snowflake, error) {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(host))
	nodeID := int64(h.Sum32() % (1 << snowflake.NodeBits))

	return NewSnowflakeNode(nodeID)
}

// NewSnowflakeNode returns a generator bound to an explicit node number.
func NewSnowflakeNode(nodeID int64) (*Snowflake, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("uid: snowflake node %d: %w", nodeID, err)
	}
	return &Snowflake{node: node}, nil
}

// Generate returns the next identifier.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}

// SnowflakeString renders Snowflake identifiers in base 10 so they satisfy StringID.
type SnowflakeString struct {
	*Snowflake
}

// Generate returns the next identifier as a decimal string.
func (s SnowflakeString) Generate() string {
	return strconv.FormatInt(s.Snowflake.Generate(), 10)
}
