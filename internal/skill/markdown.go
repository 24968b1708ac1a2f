package skill

import (
	"fmt"
	"strings"
)

// Recognized bullet prefixes mapping list items to typed blocks.
const (
	prefixRule     = "RULE:"
	prefixPitfall  = "PITFALL:"
	prefixCommand  = "CMD:"
	prefixCommand2 = "COMMAND:"
)

// ParseError describes a markdown document that could not be parsed.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("parse error: %s", e.Reason)
}

// ParseMarkdown parses a UTF-8 skill document into a SkillSpec.
// The document is front matter followed by H2 sections; fenced code blocks
// become Code, recognized bullets become Rule/Pitfall/Command/Checklist and
// other paragraphs become Text.
func ParseMarkdown(text string) (*SkillSpec, error) {
	fm, body, err := splitFrontMatter(text)
	if err != nil {
		return nil, &ParseError{Reason: err.Error()}
	}

	spec := &SkillSpec{Tags: []string{}}
	if err := parseFrontMatter(fm, spec); err != nil {
		return nil, &ParseError{Reason: err.Error()}
	}

	if err := parseBody(body, spec); err != nil {
		return nil, err
	}
	return spec, nil
}

// parseBody walks the markdown body line by line, building sections.
func parseBody(body string, spec *SkillSpec) error {
	var current *Section
	var paragraph []string
	var codeLines []string
	inCode := false

	flushParagraph := func() {
		if current == nil || len(paragraph) == 0 {
			return
		}
		content := strings.TrimRight(strings.Join(paragraph, "\n"), " \t")
		paragraph = paragraph[:0]
		if content == "" {
			return
		}
		appendBlock(current, BlockText, content)
	}
	closeSection := func() {
		if current != nil {
			flushParagraph()
			spec.Sections = append(spec.Sections, *current)
			current = nil
		}
	}

	for i, line := range strings.Split(body, "\n") {
		lineNo := i + 1

		if inCode {
			codeLines = append(codeLines, line)
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				appendBlock(current, BlockCode, strings.Join(codeLines, "\n"))
				codeLines = nil
				inCode = false
			}
			continue
		}

		if title, ok := strings.CutPrefix(line, "## "); ok {
			closeSection()
			title = strings.TrimSpace(title)
			if title == "" {
				return &ParseError{Line: lineNo, Reason: "empty section title"}
			}
			current = &Section{ID: Slugify(title), Title: title}
			continue
		}

		if current == nil {
			// Prose before the first H2 is ignored; the description lives
			// in front matter.
			continue
		}

		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			flushParagraph()
			inCode = true
			codeLines = append(codeLines, line)
			continue
		}

		if item, ok := strings.CutPrefix(strings.TrimSpace(line), "- "); ok {
			if blockType, content, typed := classifyBullet(item); typed {
				flushParagraph()
				appendBlock(current, blockType, content)
				continue
			}
			// Untyped bullets stay part of the surrounding text.
		}

		if strings.TrimSpace(line) == "" {
			flushParagraph()
		} else {
			paragraph = append(paragraph, strings.TrimRight(line, " \t"))
		}
	}

	if inCode {
		// Unterminated fence: keep what we have as a code block.
		appendBlock(current, BlockCode, strings.Join(codeLines, "\n"))
	}
	closeSection()
	return nil
}

// classifyBullet maps a bullet item to a typed block.
func classifyBullet(item string) (BlockType, string, bool) {
	switch {
	case strings.HasPrefix(item, prefixRule):
		return BlockRule, strings.TrimSpace(strings.TrimPrefix(item, prefixRule)), true
	case strings.HasPrefix(item, prefixPitfall):
		return BlockPitfall, strings.TrimSpace(strings.TrimPrefix(item, prefixPitfall)), true
	case strings.HasPrefix(item, prefixCommand2):
		return BlockCommand, strings.TrimSpace(strings.TrimPrefix(item, prefixCommand2)), true
	case strings.HasPrefix(item, prefixCommand):
		return BlockCommand, strings.TrimSpace(strings.TrimPrefix(item, prefixCommand)), true
	case strings.HasPrefix(item, "[ ]"):
		return BlockChecklist, strings.TrimSpace(strings.TrimPrefix(item, "[ ]")), true
	case strings.HasPrefix(item, "[x]"), strings.HasPrefix(item, "[X]"):
		// Checked state is not part of the model; round-trip normalizes
		// to an unchecked item.
		return BlockChecklist, strings.TrimSpace(item[3:]), true
	}
	return BlockText, item, false
}

func appendBlock(section *Section, t BlockType, content string) {
	section.Blocks = append(section.Blocks, Block{
		ID:      fmt.Sprintf("%s-block-%d", section.ID, len(section.Blocks)+1),
		Type:    t,
		Content: content,
	})
}

// CompileMarkdown renders a SkillSpec to its deterministic markdown form.
// ParseMarkdown(CompileMarkdown(spec)) yields a spec canonically equal to
// the input; whitespace-only differences in the source are normalized.
func CompileMarkdown(spec *SkillSpec) (string, error) {
	fm, err := compileFrontMatter(spec)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(fm)

	for _, sec := range spec.Sections {
		b.WriteString("\n## ")
		b.WriteString(sec.Title)
		b.WriteString("\n")
		for _, blk := range sec.Blocks {
			b.WriteString("\n")
			switch blk.Type {
			case BlockRule:
				b.WriteString("- " + prefixRule + " " + blk.Content + "\n")
			case BlockPitfall:
				b.WriteString("- " + prefixPitfall + " " + blk.Content + "\n")
			case BlockCommand:
				b.WriteString("- " + prefixCommand + " " + blk.Content + "\n")
			case BlockChecklist:
				b.WriteString("- [ ] " + blk.Content + "\n")
			case BlockCode:
				content := strings.TrimRight(blk.Content, "\n")
				if !strings.HasPrefix(strings.TrimSpace(content), "```") {
					content = "```\n" + content + "\n```"
				}
				b.WriteString(content + "\n")
			default:
				b.WriteString(strings.TrimRight(blk.Content, "\n") + "\n")
			}
		}
	}
	return b.String(), nil
}
