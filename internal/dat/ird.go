package dat

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ErrUnsupportedIRDVersion is returned for any IRD payload whose version
// byte is not 9, per spec.md §4.2.
var ErrUnsupportedIRDVersion = fmt.Errorf("dat: unsupported IRD version")

const irdMagic = "3IRD"

// IRDFile is one parsed PS3 .ird file: a disc identity plus the expected
// SHA1 of every file inside the matching "JB folder" (spec.md glossary).
type IRDFile struct {
	DiscID   string
	DiscSHA1 [20]byte
	Entries  []IRDEntry
}

// IRDEntry is one file entry inside an IRD.
type IRDEntry struct {
	Path string
	Size int64
	SHA1 [20]byte
}

// ParseIRD reads a v9 IRD binary payload. No pack example parses IRD; the
// fixed layout below follows spec.md §4.2's field list directly: magic,
// version, disc ID, disc SHA1, then a sequence of (path, size, SHA1)
// entries.
func ParseIRD(r io.Reader) (*IRDFile, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, err
	}
	if string(magic[:]) != irdMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrUnsupportedIRDVersion)
	}

	var version uint8
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return nil, err
	}
	if version != 9 {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedIRDVersion, version)
	}

	discID, err := readPString(r)
	if err != nil {
		return nil, err
	}

	ird := &IRDFile{DiscID: discID}
	if _, err := io.ReadFull(r, ird.DiscSHA1[:]); err != nil {
		return nil, err
	}

	var entryCount uint32
	if err := binary.Read(r, binary.BigEndian, &entryCount); err != nil {
		return nil, err
	}

	for i := uint32(0); i < entryCount; i++ {
		path, err := readPString(r)
		if err != nil {
			return nil, err
		}

		var size int64
		if err := binary.Read(r, binary.BigEndian, &size); err != nil {
			return nil, err
		}

		var sha1 [20]byte
		if _, err := io.ReadFull(r, sha1[:]); err != nil {
			return nil, err
		}

		ird.Entries = append(ird.Entries, IRDEntry{Path: path, Size: size, SHA1: sha1})
	}

	return ird, nil
}

// readPString reads a uint16 length prefix followed by that many bytes of
// UTF-8 text.
func readPString(r io.Reader) (string, error) {
	var length uint16
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return "", err
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}

	return string(buf), nil
}
