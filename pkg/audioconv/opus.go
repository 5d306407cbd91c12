//go:build opus

package audioconv

import (
	"io"

	popus "github.com/pekim/opus"
)

const opusRate = 48000

func decodeOggOpus(r io.ReadSeeker) ([]float32, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	defer dec.Destroy()

	ch := max(1, dec.ChannelCount())

	var (
		pcm []float32
		buf = make([]int16, opusRate*ch/2)
	)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			pcm = append(pcm, Int16ToFloat32(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return Normalize(pcm, ch, opusRate), nil
}
