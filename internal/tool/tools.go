package tool

// One Adapter literal per external tool spec.md §1 names. The CLI
// (cmd/oxyromon) hands these to internal/convert's converters rather than
// constructing Adapters itself, keeping the candidate-binary-name list in
// one place.

var (
	SevenZip = Adapter{Names: []string{"7z"}, VersionArgs: []string{}}

	Chdman = Adapter{Names: []string{"chdman"}, VersionArgs: []string{"--version"}}

	MaxCSO = Adapter{Names: []string{"maxcso"}, VersionArgs: []string{"--version"}}

	DolphinTool = Adapter{Names: []string{"dolphin-tool"}, VersionArgs: []string{"--version"}}

	Flips = Adapter{Names: []string{"flips"}, VersionArgs: []string{}}

	Wit = Adapter{Names: []string{"wit"}, VersionArgs: []string{"--version"}}

	Bchunk = Adapter{Names: []string{"bchunk"}, VersionArgs: []string{}}

	Xdelta3 = Adapter{Names: []string{"xdelta3"}, VersionArgs: []string{"-V"}}

	NSZ = Adapter{Names: []string{"nsz"}, VersionArgs: []string{"--version"}}

	Ctrtool = Adapter{Names: []string{"ctrtool"}, VersionArgs: []string{}}
)

// ByName maps spec.md §1's tool names to their Adapter, for config-driven
// lookups (e.g. a CLI flag naming a tool to probe).
var ByName = map[string]Adapter{
	"7z":           SevenZip,
	"chdman":       Chdman,
	"maxcso":       MaxCSO,
	"dolphin-tool": DolphinTool,
	"flips":        Flips,
	"wit":          Wit,
	"bchunk":       Bchunk,
	"xdelta3":      Xdelta3,
	"nsz":          NSZ,
	"ctrtool":      Ctrtool,
}
