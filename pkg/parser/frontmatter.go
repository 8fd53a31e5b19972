package parser

import (
	"bytes"

	"github.com/adrg/frontmatter"
)

// frontMatter holds the optional metadata block at the top of a workflow.
type frontMatter struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// splitFrontMatter strips a leading front matter block. It returns the
// metadata, the markdown body and the number of source lines removed, so
// positions reported against the body can be mapped back to the file.
func splitFrontMatter(src []byte) (frontMatter, []byte, int, error) {
	var meta frontMatter
	if !bytes.HasPrefix(src, []byte("---")) {
		return meta, src, 0, nil
	}
	body, err := frontmatter.Parse(bytes.NewReader(src), &meta)
	if err != nil {
		return frontMatter{}, nil, 0, err
	}
	if len(body) == len(src) {
		return meta, src, 0, nil
	}
	offset := 0
	if bytes.HasSuffix(src, body) {
		offset = bytes.Count(src[:len(src)-len(body)], []byte("\n"))
	}
	return meta, body, offset, nil
}
