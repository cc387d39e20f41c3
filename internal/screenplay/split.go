package screenplay

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Line-start heading detector for the deterministic splitter. Ordered so the
// combined interior/exterior forms match before their single-letter pieces.
var headingLinePattern = regexp.MustCompile(
	`^\s*(?:INT\s*\.?\s*/\s*EXT\s*\.?|EXT\s*\.?\s*/\s*INT\s*\.?|I\s*\.?\s*/\s*E\s*\.?|INNEN\s*/\s*AUSSEN|AUSSEN\s*/\s*INNEN|INT\.|EXT\.|INNEN\b|AUSSEN\b|I\.|E\.)`,
)

// IsHeadingLine reports whether a line opens a new scene.
func IsHeadingLine(line string) bool {
	normalized := strings.ToUpper(norm.NFC.String(line))
	return headingLinePattern.MatchString(normalized)
}

// Block is one chunk of raw screenplay text produced by the splitter. A block
// with an empty Heading is preamble text preceding the first scene.
type Block struct {
	Heading string
	Body    string
}

// Split partitions raw text into a preamble and one block per detected scene
// heading. The split is purely lexical and deterministic: the same input
// always yields the same blocks, in input order. Text with no recognizable
// headings comes back as a single preamble block.
func Split(text string) (preamble string, blocks []Block) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var pre []string
	var current *Block
	var body []string

	flush := func() {
		if current != nil {
			current.Body = strings.TrimSpace(strings.Join(body, "\n"))
			blocks = append(blocks, *current)
		}
		current = nil
		body = nil
	}

	for _, line := range lines {
		if IsHeadingLine(line) {
			flush()
			current = &Block{Heading: strings.TrimSpace(line)}
			continue
		}
		if current == nil {
			pre = append(pre, line)
		} else {
			body = append(body, line)
		}
	}
	flush()

	return strings.TrimSpace(strings.Join(pre, "\n")), blocks
}
