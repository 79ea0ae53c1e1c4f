package notify

import (
	"context"
	"net/http"
	"testing"

	"github.com/pusher/pusher-http-go/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpxbuddy/cpxbuddy/internal/log"
)

type fakeChannels struct {
	channel string
	event   string
	data    interface{}
	err     error
}

func (f *fakeChannels) Trigger(channel, event string, data interface{}) error {
	f.channel = channel
	f.event = event
	f.data = data
	return f.err
}

func (f *fakeChannels) Webhook(header http.Header, body []byte) (*pusher.Webhook, error) {
	return nil, f.err
}

func (f *fakeChannels) AuthorizePrivateChannel(params []byte) ([]byte, error) {
	return []byte(`{"auth":"signed"}`), f.err
}

func newTestNotifier(fake *fakeChannels) *Notifier {
	return &Notifier{client: fake, logger: log.NewNop()}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{AppID: "1", Key: "k", Secret: "s", Logger: log.NewNop()})
	assert.Error(t, err)

	_, err = New(Config{AppID: "1", Key: "k", Secret: "s", Cluster: "ap1"})
	assert.Error(t, err)

	n, err := New(Config{AppID: "1", Key: "k", Secret: "s", Cluster: "ap1", Logger: log.NewNop()})
	require.NoError(t, err)
	assert.NotNil(t, n)
}

func TestChannelFor(t *testing.T) {
	assert.Equal(t, "private-org-org-42", ChannelFor("org-42"))
}

func TestAnnounceDeposit(t *testing.T) {
	fake := &fakeChannels{}
	n := newTestNotifier(fake)

	dep := Deposit{Amount: "25.00", Currency: "USDC", Network: "polygon"}
	require.NoError(t, n.AnnounceDeposit("org-42", dep))

	assert.Equal(t, "private-org-org-42", fake.channel)
	assert.Equal(t, "deposit", fake.event)
	assert.Equal(t, dep, fake.data)
}

func TestAnnounceDeposit_Error(t *testing.T) {
	fake := &fakeChannels{err: assert.AnError}
	n := newTestNotifier(fake)

	err := n.AnnounceDeposit("org-42", Deposit{Amount: "1"})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestSendTest(t *testing.T) {
	fake := &fakeChannels{}
	n := newTestNotifier(fake)

	require.NoError(t, n.SendTest("org-42"))

	dep, ok := fake.data.(Deposit)
	require.True(t, ok)
	assert.Equal(t, "test", dep.Network)
}

func TestSend(t *testing.T) {
	fake := &fakeChannels{}
	n := newTestNotifier(fake)

	require.NoError(t, n.Send(context.Background(), "chat-7", "hello"))

	assert.Equal(t, "private-chat-chat-7", fake.channel)
	assert.Equal(t, "message", fake.event)
	assert.Equal(t, map[string]string{"text": "hello"}, fake.data)
}

func TestFormatDeposit(t *testing.T) {
	msg := FormatDeposit(Deposit{Amount: "25.00", Network: "polygon"})
	assert.Contains(t, msg, "25.00 USDC")
	assert.Contains(t, msg, "polygon")

	withHash := FormatDeposit(Deposit{Amount: "1", Currency: "USDT", Network: "base", TxHash: "0xabc"})
	assert.Contains(t, withHash, "USDT")
	assert.Contains(t, withHash, "0xabc")
}
