// Package recognize reads part markings from photos with Tesseract.
package recognize

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"
	"sync"
	"unicode"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
	"golang.org/x/sync/errgroup"
)

// ElectronicsChars is the character set of part markings. Lowercase is
// excluded to reduce confusions such as l/1.
const ElectronicsChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ-/"

// Reading holds the text read from a photo as-is and after
// preprocessing. Either may be empty.
type Reading struct {
	Raw       string
	Processed string
}

// Texts returns both readings, raw first.
func (r Reading) Texts() []string {
	return []string{r.Raw, r.Processed}
}

// Client is the part of a Tesseract client the engine drives.
// *gosseract.Client implements it.
type Client interface {
	SetImageFromBytes(data []byte) error
	Text() (string, error)
	Close() error
}

// Engine wraps a Tesseract client. Calls are serialized.
type Engine struct {
	mu     sync.Mutex
	client Client
}

// NewEngineWithClient returns an engine over an already configured
// client. The engine closes it.
func NewEngineWithClient(client Client) *Engine {
	return &Engine{client: client}
}

// NewEngine creates an engine for language with the given character
// whitelist. An empty whitelist selects ElectronicsChars.
func NewEngine(language, whitelist string) (*Engine, error) {
	client := gosseract.NewClient()

	if language == "" {
		language = "eng"
	}
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}
	if whitelist == "" {
		whitelist = ElectronicsChars
	}
	if err := client.SetWhitelist(whitelist); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set whitelist: %w", err)
	}

	if err := disableDictionaries(client); err != nil {
		client.Close()
		return nil, err
	}

	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set PSM: %w", err)
	}

	return NewEngineWithClient(client), nil
}

// variableSetter is implemented by *gosseract.Client.
type variableSetter interface {
	SetVariable(key gosseract.SettableVariable, value string) error
}

// disableDictionaries turns off dictionary correction; part numbers are
// not words.
func disableDictionaries(client variableSetter) error {
	for _, v := range []struct {
		key   gosseract.SettableVariable
		value string
	}{
		{"load_system_dawg", "false"},
		{"load_freq_dawg", "false"},
		{"language_model_penalty_non_dict_word", "0"},
		{"language_model_penalty_non_freq_dict_word", "0"},
	} {
		if err := client.SetVariable(v.key, v.value); err != nil {
			return fmt.Errorf("failed to set %s: %w", v.key, err)
		}
	}
	return nil
}

// Close releases OCR resources.
func (e *Engine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// Recognize reads the marking in the photo at path, once from the photo
// itself and once from its preprocessed copy.
func (e *Engine) Recognize(ctx context.Context, path string) (Reading, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return Reading{}, fmt.Errorf("failed to open image: %w", err)
	}

	var reading Reading
	var processed []byte

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, Preprocess(img), imaging.PNG); err != nil {
			return fmt.Errorf("failed to encode preprocessed image: %w", err)
		}
		processed = buf.Bytes()
		return nil
	})
	eg.Go(func() error {
		raw, err := e.recognizeImage(gctx, img)
		reading.Raw = raw
		return err
	})
	if err := eg.Wait(); err != nil {
		return Reading{}, err
	}

	reading.Processed, err = e.recognizeBytes(ctx, processed)
	if err != nil {
		return Reading{}, err
	}
	return reading, nil
}

func (e *Engine) recognizeImage(ctx context.Context, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return e.recognizeBytes(ctx, buf.Bytes())
}

func (e *Engine) recognizeBytes(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return CleanText(text), nil
}

// CleanText removes whitespace and uppercases OCR output, since a marking
// is matched as one identifier.
func CleanText(text string) string {
	var b strings.Builder
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
