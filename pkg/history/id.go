package history

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

// IDGenerator issues time-ordered turn ids.
type IDGenerator struct {
	node *snowflake.Node
	now  func() time.Time
}

// NewIDGenerator creates a generator for nodeID (0-1023). Processes that
// share a store must use distinct node ids.
func NewIDGenerator(nodeID int64) (*IDGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("history: id generator: %w", err)
	}
	return &IDGenerator{node: node, now: time.Now}, nil
}

// Next returns a new id.
func (g *IDGenerator) Next() int64 {
	return g.node.Generate().Int64()
}

// NewTurn builds a turn stamped with a fresh id and the current time.
func (g *IDGenerator) NewTurn(userID string, role Role, content string) Turn {
	return Turn{
		ID:        g.Next(),
		UserID:    userID,
		Role:      role,
		Content:   content,
		Timestamp: g.now().UTC(),
	}
}
