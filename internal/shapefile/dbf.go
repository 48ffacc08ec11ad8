package shapefile

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// dbfHeader is the part of the dBASE header go-shp does not expose.
type dbfHeader struct {
	Records        uint32
	LanguageDriver byte
}

// languageDrivers maps dBASE language driver IDs to names in the charsets table.
// 0x57 (current ANSI code page) is left out: it names no code page by itself.
var languageDrivers = map[byte]string{
	0x01: "437",
	0x03: "1252",
	0x26: "866",
	0x4d: "936",
	0x4f: "950",
	0x65: "866",
	0x78: "950",
	0x7a: "936",
	0xc9: "1251",
}

// readDBFHeader reads the .dbf header next to the shapefile.
// ok is false when there is no .dbf.
func readDBFHeader(shpPath string) (h dbfHeader, ok bool, err error) {
	p, found := sidecar(shpPath, ".dbf")
	if !found {
		return h, false, nil
	}

	f, err := os.Open(p)
	if err != nil {
		return h, false, err
	}
	defer f.Close()

	var buf [32]byte
	if _, err := io.ReadFull(f, buf[:]); err != nil {
		return h, false, fmt.Errorf("dbf header: %w", err)
	}

	h.Records = binary.LittleEndian.Uint32(buf[4:8])
	h.LanguageDriver = buf[29]

	return h, true, nil
}

// languageDriverCharset returns the code page name for a language driver ID, or "".
func languageDriverCharset(id byte) string {
	return languageDrivers[id]
}
