package mailer

import (
	"context"
	"fmt"
	"log"
	"math/rand"
)

// MockMailer simulates delivery with a configurable success rate. Used by
// the seed/demo setup until a real transport is plugged in.
type MockMailer struct {
	// SuccessRate is the fraction of sends that succeed, 0..1.
	SuccessRate float64
}

func NewMockMailer() *MockMailer {
	return &MockMailer{SuccessRate: 0.9}
}

func (m *MockMailer) Send(ctx context.Context, msg Message) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if rand.Float64() < m.SuccessRate {
		log.Printf("📨 mock send to %s: %q", msg.ToAddress, msg.Subject)
		return nil
	}
	return fmt.Errorf("mock sending failed")
}
