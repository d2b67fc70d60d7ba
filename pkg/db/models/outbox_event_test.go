package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOutboxEventAttemptsLeft(t *testing.T) {
	require.Equal(t, 10, OutboxEvent{}.AttemptsLeft(10))
	require.Equal(t, 1, OutboxEvent{AttemptCount: 9}.AttemptsLeft(10))
	require.Zero(t, OutboxEvent{AttemptCount: 12}.AttemptsLeft(10))

	now := time.Now()
	require.Zero(t, OutboxEvent{PublishedAt: &now}.AttemptsLeft(10))
}
