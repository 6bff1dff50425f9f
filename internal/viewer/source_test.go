package viewer

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"lod-spheres/internal/recording"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, src Source) []recording.Message {
	t.Helper()
	out := make(chan recording.Message, 16)
	done := make(chan error, 1)
	go func() { done <- Pump(context.Background(), src, out) }()

	var got []recording.Message
	for msg := range out {
		got = append(got, msg)
	}
	require.NoError(t, <-done)
	return got
}

func TestPipeDeliversInOrder(t *testing.T) {
	p := NewPipe(2)
	go func() {
		rs := recording.NewRecordingStream("app", p)
		_ = rs.LogStatic("spheres", recording.RightHandYUp)
		for i := range 10 {
			rs.SetTimeSequence("frame", int64(i))
			_ = rs.Log("a", recording.FromTranslation(mgl32.Vec3{float32(i), 0, 0}))
		}
		_ = rs.Close()
	}()

	got := collect(t, p.Source())
	require.Len(t, got, 11)
	assert.True(t, got[0].Static)
	for i, m := range got[1:] {
		assert.EqualValues(t, i, m.Sequence)
	}
	assert.ErrorIs(t, p.Send(got[0]), recording.ErrStreamClosed)
}

func TestPipeAbortUnblocksProducer(t *testing.T) {
	p := NewPipe(0)
	errc := make(chan error, 1)
	go func() { errc <- p.Send(recording.Message{Path: "a", Payload: recording.RightHandYUp}) }()

	require.NoError(t, p.Source().Close())
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, recording.ErrStreamClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Send still blocked after Abort")
	}
	_, err := p.Source().Next()
	assert.ErrorIs(t, err, io.EOF)
	p.Abort()
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.lods")
	fs, err := recording.CreateFile(path, "app")
	require.NoError(t, err)
	rs := recording.NewRecordingStream("app", fs)
	require.NoError(t, rs.LogStatic("spheres", recording.RightHandYUp))
	rs.SetTimeSequence("frame", 3)
	require.NoError(t, rs.Log("a", recording.NewMesh3D(make([]mgl32.Vec3, 3))))
	require.NoError(t, rs.Close())

	src, err := OpenFileSource(path)
	require.NoError(t, err)
	assert.Equal(t, "app", src.AppID())
	got := collect(t, src)
	require.NoError(t, src.Close())
	require.Len(t, got, 2)
	assert.EqualValues(t, 3, got[1].Sequence)

	_, err = OpenFileSource(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestListenerSource(t *testing.T) {
	l, err := recording.Listen("127.0.0.1:0", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	src := NewListenerSource(l)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cs, err := recording.Connect(ctx, l.URL(), "app")
	require.NoError(t, err)
	rs := recording.NewRecordingStream("app", cs)
	require.NoError(t, rs.LogStatic("spheres", recording.RightHandYUp))
	require.NoError(t, rs.Close())

	msg, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, "spheres", msg.Path)

	require.NoError(t, src.Close())
	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestPumpStopsOnCancel(t *testing.T) {
	p := NewPipe(1)
	require.NoError(t, p.Send(recording.Message{Path: "a", Payload: recording.RightHandYUp}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan recording.Message) // nobody reads
	err := Pump(ctx, p.Source(), out)
	assert.ErrorIs(t, err, context.Canceled)
	_, open := <-out
	assert.False(t, open)
}
