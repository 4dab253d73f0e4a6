package events

import (
	"testing"
	"time"
)

// The API server treats a missing broker as a nil client; every exported
// method must tolerate that.
func TestNilClientIsNoOp(t *testing.T) {
	var c *Client

	c.Publish(SubjectToneClassified, ToneClassified{
		EventID:   "e1",
		Tone:      "alert",
		Timestamp: time.Now(),
	})
	if err := c.SubscribeFeedback(); err != nil {
		t.Errorf("nil client SubscribeFeedback: %v", err)
	}
	c.Close()
}
