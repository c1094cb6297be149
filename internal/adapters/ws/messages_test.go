package ws

import (
	"testing"

	"willow-auction-engine/internal/domain/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClientMessage(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    MessageType
		wantErr error
	}{
		{
			name: "subscribe",
			data: `{"type":"subscribe","provinces":["ON","BC"],"timestamp":1718031600}`,
			want: MessageTypeSubscribe,
		},
		{
			name: "ping",
			data: `{"type":"ping","timestamp":1718031600}`,
			want: MessageTypePing,
		},
		{
			name:    "missing_type",
			data:    `{"provinces":["ON"]}`,
			wantErr: shared.ErrMessageTypeRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseClientMessage([]byte(tt.data))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, msg.Type)
		})
	}

	t.Run("malformed_json", func(t *testing.T) {
		_, err := ParseClientMessage([]byte("{not json"))
		assert.Error(t, err)
	})
}

func TestClientMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     ClientMessage
		wantErr error
	}{
		{
			name: "subscribe_with_provinces",
			msg:  ClientMessage{Type: MessageTypeSubscribe, Provinces: []string{"ON"}},
		},
		{
			name:    "subscribe_without_provinces",
			msg:     ClientMessage{Type: MessageTypeSubscribe},
			wantErr: shared.ErrProvinceRequired,
		},
		{
			name: "unsubscribe",
			msg:  ClientMessage{Type: MessageTypeUnsubscribe},
		},
		{
			name: "ping",
			msg:  ClientMessage{Type: MessageTypePing},
		},
		{
			name:    "unknown_type",
			msg:     ClientMessage{Type: "auction_opened"},
			wantErr: shared.ErrUnknownMessageType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}
