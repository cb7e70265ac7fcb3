package sshutil

import (
	"errors"
	"testing"
	"time"

	rerrors "github.com/rileyhilliard/srvstats/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundedPing(t *testing.T) {
	refused := errors.New("connection reset")

	tests := []struct {
		name string
		ping func() error
		want error
	}{
		{name: "answers", ping: func() error { return nil }},
		{name: "fails fast", ping: func() error { return refused }, want: refused},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := BoundedPing(tt.ping, time.Second)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBoundedPing_GivesUpOnHungKeepalive(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	err := BoundedPing(func() error {
		<-release
		return nil
	}, 50*time.Millisecond)

	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, err, ErrPingTimeout)
	assert.True(t, rerrors.IsCode(err, rerrors.ErrSSH))
}
