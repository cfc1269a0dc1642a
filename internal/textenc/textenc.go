// Package textenc decodes specification files into UTF-8 text.
//
// The default mode accepts only valid UTF-8 and keeps the input byte for
// byte. ModeAuto detects a byte order mark or a legacy encoding and converts
// the content with golang.org/x/text.
package textenc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type Mode string

const (
	ModeUTF8 Mode = "utf-8"
	ModeAuto Mode = "auto"
)

var ErrInvalidUTF8 = errors.New("invalid utf-8")

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeUTF8, "utf8":
		return ModeUTF8, nil
	case ModeAuto:
		return ModeAuto, nil
	default:
		return "", fmt.Errorf("unknown encoding mode %q (want %q or %q)", s, ModeUTF8, ModeAuto)
	}
}

type Result struct {
	Name       string  `json:"encoding"`
	Confidence float64 `json:"confidence"`
	HasBOM     bool    `json:"has_bom"`
}

type candidate struct {
	name  string
	enc   encoding.Encoding
	score func([]byte) float64
}

const maxSampleSize = 8192

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

var legacy = []candidate{
	{name: "windows-1252", enc: charmap.Windows1252, score: scoreWindows1252},
	{name: "iso-8859-1", enc: charmap.ISO8859_1, score: scoreISO88591},
	{name: "koi8r", enc: charmap.KOI8R, score: scoreHighHalf(0.5)},
	{name: "shift-jis", enc: japanese.ShiftJIS, score: scoreDoubleByte(0x81, 0x9F, 0xE0, 0xEF, 0x40, 0xFC)},
	{name: "euc-jp", enc: japanese.EUCJP, score: scoreDoubleByte(0xA1, 0xFE, 0xA1, 0xFE, 0xA1, 0xFE)},
	{name: "gbk", enc: simplifiedchinese.GBK, score: scoreDoubleByte(0x81, 0xFE, 0x81, 0xFE, 0x40, 0xFE)},
	{name: "big5", enc: traditionalchinese.Big5, score: scoreDoubleByte(0xA1, 0xF9, 0xA1, 0xF9, 0x40, 0xFE)},
	{name: "euc-kr", enc: korean.EUCKR, score: scoreDoubleByte(0xA1, 0xFE, 0xA1, 0xFE, 0xA1, 0xFE)},
}

func Detect(data []byte) Result {
	if len(data) == 0 {
		return Result{Name: "utf-8", Confidence: 1.0}
	}

	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return Result{Name: "utf-8", Confidence: 1.0, HasBOM: true}
	case bytes.HasPrefix(data, bomUTF16LE):
		return Result{Name: "utf-16le", Confidence: 1.0, HasBOM: true}
	case bytes.HasPrefix(data, bomUTF16BE):
		return Result{Name: "utf-16be", Confidence: 1.0, HasBOM: true}
	}

	sample := data
	if len(sample) > maxSampleSize {
		sample = trimPartialRune(sample[:maxSampleSize])
	}

	if isASCII(sample) {
		return Result{Name: "ascii", Confidence: 1.0}
	}
	if utf8.Valid(sample) {
		return Result{Name: "utf-8", Confidence: 0.95}
	}

	best := Result{Name: "utf-8", Confidence: 0.3}
	for _, c := range legacy {
		if s := c.score(sample); s > best.Confidence {
			best = Result{Name: c.name, Confidence: s}
		}
	}
	return best
}

// Decode returns data as UTF-8 text according to mode.
func Decode(data []byte, mode Mode) (string, Result, error) {
	detected := Detect(data)

	if mode != ModeAuto {
		if !utf8.Valid(data) {
			return "", detected, ErrInvalidUTF8
		}
		return string(data), detected, nil
	}

	return normalize(data, detected), detected, nil
}

func ReadFile(path string, mode Mode) (string, Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", Result{}, err
	}
	text, detected, err := Decode(data, mode)
	if err != nil {
		return "", detected, fmt.Errorf("%s: %w", path, err)
	}
	return text, detected, nil
}

func normalize(data []byte, detected Result) string {
	if detected.HasBOM {
		switch detected.Name {
		case "utf-8":
			data = data[len(bomUTF8):]
		case "utf-16le", "utf-16be":
			data = data[2:]
		}
	}

	switch detected.Name {
	case "ascii":
		return string(data)
	case "utf-8":
		return string(bytes.ToValidUTF8(data, []byte("\uFFFD")))
	case "utf-16le":
		return decodeWith(data, unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder())
	case "utf-16be":
		return decodeWith(data, unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder())
	}

	for _, c := range legacy {
		if c.name == detected.Name {
			return decodeWith(data, c.enc.NewDecoder())
		}
	}
	return string(bytes.ToValidUTF8(data, []byte("\uFFFD")))
}

func decodeWith(data []byte, dec *encoding.Decoder) string {
	if len(data) == 0 {
		return ""
	}

	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), dec))
	if err != nil {
		return string(bytes.ToValidUTF8(data, []byte("\uFFFD")))
	}
	return string(bytes.ToValidUTF8(out, []byte("\uFFFD")))
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}

// trimPartialRune drops an incomplete rune cut off by sampling.
func trimPartialRune(sample []byte) []byte {
	for i := 1; i <= utf8.UTFMax && i <= len(sample); i++ {
		b := sample[len(sample)-i]
		if b < 0x80 {
			return sample
		}
		if utf8.RuneStart(b) {
			if !utf8.FullRune(sample[len(sample)-i:]) {
				return sample[:len(sample)-i]
			}
			return sample
		}
	}
	return sample
}

func highBytes(data []byte) int {
	n := 0
	for _, b := range data {
		if b >= 0x80 {
			n++
		}
	}
	return n
}

// scoreWindows1252 penalizes the five code points windows-1252 leaves undefined.
func scoreWindows1252(data []byte) float64 {
	hi := highBytes(data)
	if hi == 0 {
		return 0
	}
	bad := 0
	for _, b := range data {
		switch b {
		case 0x81, 0x8D, 0x8F, 0x90, 0x9D:
			bad++
		}
	}
	return 0.6 * float64(hi-bad) / float64(hi)
}

func scoreISO88591(data []byte) float64 {
	if highBytes(data) == 0 {
		return 0
	}
	for _, b := range data {
		if b >= 0x80 && b <= 0x9F {
			return 0
		}
	}
	return 0.55
}

func scoreHighHalf(weight float64) func([]byte) float64 {
	return func(data []byte) float64 {
		hi := highBytes(data)
		if hi == 0 {
			return 0
		}
		n := 0
		for _, b := range data {
			if b >= 0xC0 {
				n++
			}
		}
		return weight * float64(n) / float64(hi)
	}
}

// scoreDoubleByte rewards lead/trail byte pairs inside the given ranges.
func scoreDoubleByte(lead1Lo, lead1Hi, lead2Lo, lead2Hi, trailLo, trailHi byte) func([]byte) float64 {
	return func(data []byte) float64 {
		hi := highBytes(data)
		if hi == 0 {
			return 0
		}
		paired := 0
		for i := 0; i+1 < len(data); i++ {
			b := data[i]
			if (b >= lead1Lo && b <= lead1Hi) || (b >= lead2Lo && b <= lead2Hi) {
				trail := data[i+1]
				if trail >= trailLo && trail <= trailHi {
					paired += 1
					if trail >= 0x80 {
						paired++
					}
					i++
				}
			}
		}
		if paired > hi {
			paired = hi
		}
		return 0.7 * float64(paired) / float64(hi)
	}
}
