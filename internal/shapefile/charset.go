package shapefile

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// charsets maps normalized .cpg code page names to decoders.
var charsets = map[string]encoding.Encoding{
	"utf8":        unicode.UTF8,
	"65001":       unicode.UTF8,
	"gbk":         simplifiedchinese.GBK,
	"gb2312":      simplifiedchinese.GBK,
	"936":         simplifiedchinese.GBK,
	"cp936":       simplifiedchinese.GBK,
	"gb18030":     simplifiedchinese.GB18030,
	"54936":       simplifiedchinese.GB18030,
	"big5":        traditionalchinese.Big5,
	"950":         traditionalchinese.Big5,
	"cp950":       traditionalchinese.Big5,
	"1252":        charmap.Windows1252,
	"cp1252":      charmap.Windows1252,
	"windows1252": charmap.Windows1252,
	"88591":       charmap.ISO8859_1,
	"iso88591":    charmap.ISO8859_1,
	"latin1":      charmap.ISO8859_1,
	"437":         charmap.CodePage437,
	"cp437":       charmap.CodePage437,
	"866":         charmap.CodePage866,
	"cp866":       charmap.CodePage866,
	"1251":        charmap.Windows1251,
	"cp1251":      charmap.Windows1251,
}

// Charset returns the decoder registered for a code page name such as
// "UTF-8", "GBK" or "936". Names are matched case-insensitively ignoring
// dashes, underscores and spaces.
func Charset(name string) (encoding.Encoding, error) {
	key := strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', ' ':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(name)))

	if enc, ok := charsets[key]; ok {
		return enc, nil
	}

	return nil, fmt.Errorf("unknown charset %q", name)
}

// readCPG returns the code page declared by the .cpg sidecar, or "" when absent.
func readCPG(shpPath string) (string, error) {
	p, ok := sidecar(shpPath, ".cpg")
	if !ok {
		return "", nil
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}

// decoder turns raw DBF bytes into UTF-8 text.
type decoder struct {
	dec *encoding.Decoder
}

func newDecoder(enc encoding.Encoding) decoder {
	if enc == nil || enc == unicode.UTF8 {
		return decoder{}
	}

	return decoder{dec: enc.NewDecoder()}
}

func (d decoder) String(raw string) string {
	raw = strings.TrimRight(raw, "\x00 ")
	raw = strings.TrimLeft(raw, " ")
	if d.dec == nil {
		return raw
	}

	s, err := d.dec.String(raw)
	if err != nil {
		return raw
	}

	return s
}
