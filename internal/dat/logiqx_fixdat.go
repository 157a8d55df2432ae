package dat

import (
	"encoding/xml"
	"strconv"
)

// FixdatGame is one game entry in a fixdat: a game with at least one rom
// still missing from the catalog. Grounded on bodgit-rom/dat/file.go's
// Matched/isComplete/MarshalXML machinery, adapted from "mark a ROM matched
// as the whole *File is unmarshalled, then marshal back whatever is left"
// into "build a fixdat directly from whichever roms the catalog reports
// missing" - the rewrite's Catalog Store already knows which roms are
// missing, so there's no in-place mutation of a parsed document to drive.
type FixdatGame struct {
	XMLName  xml.Name    `xml:"game"`
	Name     string      `xml:"name,attr"`
	Category string      `xml:"category,omitempty"`
	ROM      []FixdatRom `xml:"rom"`
}

// FixdatRom mirrors one missing rom entry. MarshalXML emits the element
// manually instead of relying on encoding/xml's struct tags, writing only
// the attributes that are set. encoding/xml still renders it as
// <rom ...></rom>: the self-closing-tag limitation the teacher's own BUG
// comment calls out ("<rom> elements are not marshalled as self-closing")
// remains.
type FixdatRom struct {
	Name  string
	Size  int64
	CRC32 string
	MD5   string
	SHA1  string
}

func (r FixdatRom) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start = xml.StartElement{Name: xml.Name{Local: "rom"}}
	start.Attr = []xml.Attr{{Name: xml.Name{Local: "name"}, Value: r.Name}}
	if r.Size > 0 {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "size"}, Value: strconv.FormatInt(r.Size, 10)})
	}
	if r.CRC32 != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "crc"}, Value: r.CRC32})
	}
	if r.MD5 != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "md5"}, Value: r.MD5})
	}
	if r.SHA1 != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "sha1"}, Value: r.SHA1})
	}

	if err := e.EncodeToken(start); err != nil {
		return err
	}

	return e.EncodeToken(start.End())
}

// Fixdat is the whole "still wanted" document: the original System header
// plus only the games that have at least one rom missing, per spec.md §4.1.
type Fixdat struct {
	XMLName xml.Name     `xml:"datafile"`
	Header  FixdatHeader `xml:"header"`
	Game    []FixdatGame `xml:"game"`
}

// FixdatHeader reuses the System's identity fields rather than a fresh
// struct so the fixdat round-trips against the same name/description/
// version the System was originally parsed with.
type FixdatHeader struct {
	XMLName     xml.Name `xml:"header"`
	Name        string   `xml:"name"`
	Description string   `xml:"description"`
	Version     string   `xml:"version"`
}

// NewFixdat builds a Fixdat document from a System and the subset of
// Games/Roms a caller (typically C1's Missing query) has already determined
// are not yet in the collection. A Game with zero missing roms is omitted
// entirely, matching the teacher's isComplete-skips-marshalling behaviour.
func NewFixdat(sys System, missing map[string][]Rom) *Fixdat {
	fd := &Fixdat{
		Header: FixdatHeader{
			Name:        sys.Name,
			Description: sys.Description,
			Version:     sys.Version,
		},
	}

	for gameName, roms := range missing {
		if len(roms) == 0 {
			continue
		}

		fg := FixdatGame{Name: gameName}
		for _, r := range roms {
			fr := FixdatRom{
				Name:  r.Name,
				CRC32: r.CRC32,
				MD5:   r.MD5,
				SHA1:  r.SHA1,
			}
			if r.Size != nil {
				fr.Size = *r.Size
			}
			fg.ROM = append(fg.ROM, fr)
		}
		fd.Game = append(fd.Game, fg)
	}

	return fd
}

// Marshal renders fd as indented XML, matching the teacher's
// xml.MarshalIndent(f, "", "\t") convention.
func (fd *Fixdat) Marshal() ([]byte, error) {
	return xml.MarshalIndent(fd, "", "\t")
}
