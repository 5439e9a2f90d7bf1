package publisher

import (
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"broker protocol error", kafka.InvalidMessage, ErrBrokerRejected},
		{"write errors wrapping protocol error", kafka.WriteErrors{kafka.MessageSizeTooLarge}, ErrBrokerRejected},
		{"dial failure", errors.New("dial tcp 127.0.0.1:9092: connection refused"), ErrConnectionFailed},
		{"write errors wrapping net failure", kafka.WriteErrors{errors.New("broken pipe")}, ErrConnectionFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify("ord-1", tc.err)
			assert.ErrorIs(t, got, tc.want)
		})
	}
}
