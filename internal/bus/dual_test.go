package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeClient struct {
	published  [][2]string
	subscribed []string
	publishErr error
	closed     bool
}

func (f *fakeClient) Publish(ctx context.Context, topic string, payload []byte, retain bool) error {
	f.published = append(f.published, [2]string{topic, string(payload)})
	return f.publishErr
}

func (f *fakeClient) Subscribe(topics []string, handler Handler) error {
	f.subscribed = append(f.subscribed, topics...)
	return nil
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func TestDualClientPublishFansOutToBoth(t *testing.T) {
	primary := &fakeClient{}
	secondary := &fakeClient{}
	d := NewDualClient(primary, secondary)

	err := d.Publish(context.Background(), "hms/cam1/result", []byte("payload"), false)

	assert.NoError(t, err)
	assert.Equal(t, [][2]string{{"hms/cam1/result", "payload"}}, primary.published)
	assert.Equal(t, [][2]string{{"hms/cam1/result", "payload"}}, secondary.published)
}

func TestDualClientPublishReturnsPrimaryErrorDespiteSecondaryFailure(t *testing.T) {
	primary := &fakeClient{publishErr: errors.New("primary down")}
	secondary := &fakeClient{publishErr: errors.New("secondary down")}
	d := NewDualClient(primary, secondary)

	err := d.Publish(context.Background(), "hms/cam1/result", []byte("x"), false)

	assert.EqualError(t, err, "primary down")
}

func TestDualClientSubscribeDelegatesToPrimaryOnly(t *testing.T) {
	primary := &fakeClient{}
	secondary := &fakeClient{}
	d := NewDualClient(primary, secondary)

	require := assert.New(t)
	require.NoError(d.Subscribe([]string{"camera/event/motion/start"}, nil))
	require.Equal([]string{"camera/event/motion/start"}, primary.subscribed)
	require.Empty(secondary.subscribed)
}

func TestDualClientCloseClosesBoth(t *testing.T) {
	primary := &fakeClient{}
	secondary := &fakeClient{}
	d := NewDualClient(primary, secondary)

	assert.NoError(t, d.Close())
	assert.True(t, primary.closed)
	assert.True(t, secondary.closed)
}
