package task

import "regexp"

// markdown cleanup chain for the text-to-audio bridge (component I), ported
// from original_source/backend/audio_generation.py's process_uploaded_file.
var (
	reCodeBlock    = regexp.MustCompile("(?s)```.*?```")
	reInlineCode   = regexp.MustCompile("`[^`]+`")
	reImage        = regexp.MustCompile(`!\[.*?\]\(.*?\)`)
	reLink         = regexp.MustCompile(`\[([^\]]+)\]\(.*?\)`)
	reHeader       = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	reBoldStar     = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	reBoldUnder    = regexp.MustCompile(`__([^_]+)__`)
	reItalicStar   = regexp.MustCompile(`\*([^*]+)\*`)
	reItalicUnder  = regexp.MustCompile(`_([^_]+)_`)
	reUnorderedLi  = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	reOrderedLi    = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	reBlockquote   = regexp.MustCompile(`(?m)^\s*>\s+`)
	reHorizontal   = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	reExtraNewline = regexp.MustCompile(`\n{3,}`)
)

// CleanMarkdown strips markdown syntax down to narratable plain text,
// keeping the text of links, headers, and emphasis while discarding
// code blocks, images, list/quote markers, and horizontal rules.
func CleanMarkdown(content string) string {
	content = reCodeBlock.ReplaceAllString(content, "")
	content = reInlineCode.ReplaceAllString(content, "")
	content = reImage.ReplaceAllString(content, "")
	content = reLink.ReplaceAllString(content, "$1")
	content = reHeader.ReplaceAllString(content, "")
	content = reBoldStar.ReplaceAllString(content, "$1")
	content = reBoldUnder.ReplaceAllString(content, "$1")
	content = reItalicStar.ReplaceAllString(content, "$1")
	content = reItalicUnder.ReplaceAllString(content, "$1")
	content = reUnorderedLi.ReplaceAllString(content, "")
	content = reOrderedLi.ReplaceAllString(content, "")
	content = reBlockquote.ReplaceAllString(content, "")
	content = reHorizontal.ReplaceAllString(content, "")
	content = reExtraNewline.ReplaceAllString(content, "\n\n")
	return content
}
