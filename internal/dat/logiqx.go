package dat

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseError is returned for malformed XML, per spec.md §4.2. Line holds the
// decoder's byte offset at the error (see lineOf), not a true line number.
type ParseError struct {
	Line   int64
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("dat: parse error at line %d: %s", e.Line, e.Reason)
}

// ErrDuplicateClrmamepro is the warning surfaced (never an abort) when a
// second clrmamepro header block appears in one stream; the first wins.
var ErrDuplicateClrmamepro = fmt.Errorf("dat: duplicate clrmamepro header, first wins")

// xmlHeader mirrors the <header> block's fields.
type xmlHeader struct {
	Name        string `xml:"name"`
	Description string `xml:"description"`
	Version     string `xml:"version"`
}

type xmlRom struct {
	Name   string `xml:"name,attr"`
	Size   string `xml:"size,attr"`
	CRC32  string `xml:"crc,attr"`
	MD5    string `xml:"md5,attr"`
	SHA1   string `xml:"sha1,attr"`
	Status string `xml:"status,attr"`
}

// xmlClrmamepro mirrors the <clrmamepro> block's "name" field, the only
// part of it that matters for arcade auto-detection (see mame.go).
type xmlClrmamepro struct {
	Name string `xml:"name,attr"`
}

type xmlGame struct {
	Name        string   `xml:"name,attr"`
	CloneOf     string   `xml:"cloneof,attr"`
	RomOf       string   `xml:"romof,attr"`
	Category    string   `xml:"category"`
	Description string   `xml:"description"`
	ROM         []xmlRom `xml:"rom"`
}

// ParsedDat is what ParseLogiqx returns: the System header plus a
// channel of normalized Games, so a caller (typically C1's SyncGames) can
// start persisting before the whole file has been read.
type ParsedDat struct {
	System  System
	Games   <-chan Game
	Summary *ParseSummary
}

// ParseLogiqx streams a Logiqx XML datfile from r and returns the System
// header immediately; Games arrive on the returned channel as the decoder
// walks the document, one <game> element at a time, matching the "streams
// to avoid loading multi-hundred-megabyte dats into memory" constraint of
// spec.md §4.2. The teacher's dat.File/dat.Game/dat.ROM (dat/file.go) decode
// the whole document via xml.Unmarshal; this keeps their field shapes but
// drives them from a token loop instead.
func ParseLogiqx(r io.Reader) (*ParsedDat, error) {
	dec := xml.NewDecoder(r)

	games := make(chan Game, 8)
	summary := &ParseSummary{}

	var sys System
	var sawClrmamepro bool
	var pending []xml.StartElement // machine/game elements seen while still reading the header

	// Read synchronously up to (and including) the first <game>/<machine>
	// start element, so the returned System is always fully populated -
	// <header> always precedes the game list in a Logiqx datfile. Any
	// game/machine element encountered during this pass is buffered and
	// replayed once streaming starts, so nothing is lost.
	for len(pending) == 0 {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Line: lineOf(dec), Reason: err.Error()}
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "header":
			var h xmlHeader
			if err := dec.DecodeElement(&h, &se); err != nil {
				return nil, &ParseError{Line: lineOf(dec), Reason: err.Error()}
			}
			sys.Name = h.Name
			sys.Description = h.Description
			sys.Version = h.Version

		case "clrmamepro":
			if sawClrmamepro {
				summary.SkippedWarnings = append(summary.SkippedWarnings, ErrDuplicateClrmamepro.Error())
				if err := dec.Skip(); err != nil {
					return nil, &ParseError{Line: lineOf(dec), Reason: err.Error()}
				}
				continue
			}
			sawClrmamepro = true
			var cmp xmlClrmamepro
			if err := dec.DecodeElement(&cmp, &se); err != nil {
				return nil, &ParseError{Line: lineOf(dec), Reason: err.Error()}
			}
			if IsArcadeSignature(cmp.Name) {
				sys.Arcade = true
			}

		case "machine":
			sys.Arcade = true
			pending = append(pending, se)

		case "game":
			pending = append(pending, se)
		}
	}

	streamRest := func() error {
		for _, se := range pending {
			if err := decodeGame(dec, se, games, summary); err != nil {
				return err
			}
		}

		for {
			tok, err := dec.Token()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return &ParseError{Line: lineOf(dec), Reason: err.Error()}
			}

			se, ok := tok.(xml.StartElement)
			if !ok {
				continue
			}

			switch se.Name.Local {
			case "clrmamepro":
				if sawClrmamepro {
					summary.SkippedWarnings = append(summary.SkippedWarnings, ErrDuplicateClrmamepro.Error())
					if err := dec.Skip(); err != nil {
						return err
					}
					continue
				}
				sawClrmamepro = true
				if err := dec.Skip(); err != nil {
					return err
				}

			case "machine", "game":
				if err := decodeGame(dec, se, games, summary); err != nil {
					return err
				}
			}
		}
	}

	go func() {
		defer close(games)
		if err := streamRest(); err != nil {
			summary.SkippedWarnings = append(summary.SkippedWarnings, err.Error())
		}
	}()

	return &ParsedDat{System: sys, Games: games, Summary: summary}, nil
}

func decodeGame(dec *xml.Decoder, se xml.StartElement, out chan<- Game, summary *ParseSummary) error {
	var xg xmlGame
	if err := dec.DecodeElement(&xg, &se); err != nil {
		return &ParseError{Line: lineOf(dec), Reason: err.Error()}
	}

	parsed, err := ParseName(xg.Name)
	if err != nil {
		summary.GamesSkipped++
		summary.SkippedWarnings = append(summary.SkippedWarnings, err.Error())
		return nil
	}

	g := Game{
		Name:      xg.Name,
		Category:  xg.Category,
		Parent:    xg.CloneOf,
		Regions:   parsed.Regions,
		Languages: parsed.Languages,
		Flags:     parsed.Flags,
		Revision:  parsed.Revision,
		DiscIndex: parsed.DiscIndex,
	}
	// MAME convention: cloneof set means parent-clone; cloneof empty but
	// romof set means this Game depends on a BIOS set, not a parent.
	if g.Parent == "" && xg.RomOf != "" {
		g.Bios = xg.RomOf
	}

	for _, r := range xg.ROM {
		rom := Rom{
			Name:   r.Name,
			CRC32:  strings.ToLower(r.CRC32),
			MD5:    strings.ToLower(r.MD5),
			SHA1:   strings.ToLower(r.SHA1),
			Status: RomStatus(r.Status),
		}
		if rom.Status == "" {
			rom.Status = StatusGood
		}
		if r.Size != "" {
			if sz, err := strconv.ParseInt(r.Size, 10, 64); err == nil {
				rom.Size = &sz
			}
		}
		g.Roms = append(g.Roms, rom)
	}

	summary.GamesParsed++
	out <- g
	return nil
}

// lineOf reports the decoder's current byte offset, used as a stand-in for
// a line number; encoding/xml does not expose true line numbers, only byte
// offset (InputOffset), so this is approximate and used only for error
// reporting.
func lineOf(dec *xml.Decoder) int64 {
	return dec.InputOffset()
}
