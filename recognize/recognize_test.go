package recognize

import (
	"bytes"
	"context"
	"errors"
	"image"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient answers each Text call with the next scripted reading
// and keeps the images it was given.
type scriptedClient struct {
	texts  []string
	images []image.Image
	closed bool
}

func (c *scriptedClient) SetImageFromBytes(data []byte) error {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}
	c.images = append(c.images, img)
	return nil
}

func (c *scriptedClient) Text() (string, error) {
	text := c.texts[0]
	c.texts = c.texts[1:]
	return text, nil
}

func (c *scriptedClient) Close() error {
	c.closed = true
	return nil
}

func writeMarking(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "marking.png")
	require.NoError(t, imaging.Save(marking(200, 90), path))
	return path
}

func TestRecognizeReadsRawThenProcessed(t *testing.T) {
	client := &scriptedClient{texts: []string{" 74l5 0O\n", "74LS00\n"}}
	e := NewEngineWithClient(client)

	reading, err := e.Recognize(context.Background(), writeMarking(t))
	require.NoError(t, err)
	assert.Equal(t, Reading{Raw: "74L50O", Processed: "74LS00"}, reading)

	require.Len(t, client.images, 2)
	processed := imaging.Grayscale(client.images[1])
	assert.Equal(t, uint8(255), processed.Pix[0], "processed copy has a white background")

	require.NoError(t, e.Close())
	assert.True(t, client.closed)
}

func TestRecognizeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &scriptedClient{texts: []string{"X", "Y"}}
	_, err := NewEngineWithClient(client).Recognize(ctx, writeMarking(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, client.images)
}

func TestRecognizeMissingFile(t *testing.T) {
	e := NewEngineWithClient(&scriptedClient{})
	_, err := e.Recognize(context.Background(), filepath.Join(t.TempDir(), "none.jpg"))
	assert.Error(t, err)
}

// variableRecorder records variables and rejects one key.
type variableRecorder struct {
	set    map[gosseract.SettableVariable]string
	reject gosseract.SettableVariable
}

func (r *variableRecorder) SetVariable(key gosseract.SettableVariable, value string) error {
	if key == r.reject {
		return errors.New("unknown variable")
	}
	r.set[key] = value
	return nil
}

func TestDisableDictionaries(t *testing.T) {
	r := &variableRecorder{set: map[gosseract.SettableVariable]string{}}
	require.NoError(t, disableDictionaries(r))
	assert.Equal(t, "false", r.set["load_system_dawg"])
	assert.Equal(t, "false", r.set["load_freq_dawg"])
	assert.Len(t, r.set, 4)

	r = &variableRecorder{set: map[gosseract.SettableVariable]string{}, reject: "load_freq_dawg"}
	err := disableDictionaries(r)
	assert.ErrorContains(t, err, "load_freq_dawg")
}
