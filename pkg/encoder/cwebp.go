package encoder

import (
	"bytes"
	"fmt"
	"image"
	"sync"

	"github.com/belphemur/go-webpbin/v2"
)

const libwebpVersion = "1.6.0"

// CWebPEncoder shells out to the cwebp binary managed by webpbin. The first
// Available call fetches the binary when it is not already present.
type CWebPEncoder struct {
	once     sync.Once
	prepared bool
}

func (e *CWebPEncoder) Backend() string { return "cwebp" }

func (e *CWebPEncoder) Available() bool {
	e.once.Do(func() {
		webpbin.SetLibVersion(libwebpVersion)
		container := webpbin.NewCWebP()
		e.prepared = container.BinWrapper.Run() == nil
	})
	return e.prepared
}

func (e *CWebPEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	if !e.Available() {
		return nil, fmt.Errorf("cwebp binary is not available")
	}

	var buf bytes.Buffer
	err := webpbin.NewCWebP().
		Quality(uint(Clamp(quality))).
		InputImage(img).
		Output(&buf).
		Run()
	if err != nil {
		return nil, fmt.Errorf("cwebp encode: %w", err)
	}
	return buf.Bytes(), nil
}
