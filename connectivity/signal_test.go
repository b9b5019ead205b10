package connectivity

import (
	"context"
	"errors"
	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net"
	"testing"
	"time"
)

func TestStatic_NotifiesOnlyOnChange(t *testing.T) {
	s := NewStatic(true)

	var got []bool
	unsubscribe := s.Subscribe(func(online bool) { got = append(got, online) })

	s.Set(true)
	s.Set(false)
	s.Set(false)
	s.Set(true)

	assert.Equal(t, []bool{false, true}, got)
	assert.True(t, s.Online())

	unsubscribe()
	unsubscribe()
	s.Set(false)
	assert.Equal(t, []bool{false, true}, got)
	assert.False(t, s.Online())
}

func TestStatic_SubscribersInOrder(t *testing.T) {
	s := NewStatic(false)

	var order []string
	s.Subscribe(func(bool) { order = append(order, "first") })
	s.Subscribe(func(bool) { order = append(order, "second") })
	s.Subscribe(func(bool) { order = append(order, "third") })

	s.Set(true)
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestAddressFor(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://open.er-api.com", "open.er-api.com:443", false},
		{"http://localhost", "localhost:80", false},
		{"http://127.0.0.1:8080/base", "127.0.0.1:8080", false},
		{"not a url", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := AddressFor(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProbe_Check(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	p := NewProbe(listener.Addr().String(), time.Hour, time.Second, log.NewNopLogger())

	var transitions []bool
	p.Subscribe(func(online bool) { transitions = append(transitions, online) })

	assert.True(t, p.Check(context.Background()))
	assert.Empty(t, transitions)

	p.dial = func(context.Context, string, string) (net.Conn, error) {
		return nil, errors.New("network is unreachable")
	}
	assert.False(t, p.Check(context.Background()))
	assert.False(t, p.Online())
	assert.Equal(t, []bool{false}, transitions)
}

func TestProbe_RunStopsWithContext(t *testing.T) {
	p := NewProbe("127.0.0.1:1", time.Millisecond, 10*time.Millisecond, log.NewNopLogger())
	p.dial = func(context.Context, string, string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return !p.Online() }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("probe did not stop")
	}
}
