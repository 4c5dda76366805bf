package chunker

import (
	"strings"
	"unicode/utf8"
)

// pack greedily joins consecutive units with sep until the next unit would
// push the chunk past chunkSize. Each new chunk starts with the trailing
// units of the previous one whose combined length fits within the overlap,
// trimmed from the front until the next unit fits. A unit longer than
// chunkSize becomes its own oversized chunk.
func (p *Processor) pack(units []string, sep string) []string {
	var (
		chunks  []string
		current []string
		size    int
	)
	sepLen := utf8.RuneCountInString(sep)

	for _, unit := range units {
		unitLen := utf8.RuneCountInString(unit)

		if len(current) > 0 && size+sepLen+unitLen > p.chunkSize {
			chunks = append(chunks, strings.Join(current, sep))
			current = p.overlapTail(current, sepLen)
			size = joinedLen(current, sepLen)
			for len(current) > 0 && size+sepLen+unitLen > p.chunkSize {
				current = current[1:]
				size = joinedLen(current, sepLen)
			}
		}

		if len(current) > 0 {
			size += sepLen
		}
		current = append(current, unit)
		size += unitLen
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, sep))
	}

	return chunks
}

// overlapTail returns the trailing units whose joined length is at most the
// overlap. The whole chunk is never carried, so every chunk adds new text.
func (p *Processor) overlapTail(units []string, sepLen int) []string {
	if p.overlap <= 0 || len(units) < 2 {
		return nil
	}

	total := 0
	start := len(units)
	for i := len(units) - 1; i >= 1; i-- {
		add := utf8.RuneCountInString(units[i])
		if start < len(units) {
			add += sepLen
		}
		if total+add > p.overlap {
			break
		}
		total += add
		start = i
	}

	if start == len(units) {
		return nil
	}
	return append([]string(nil), units[start:]...)
}

func joinedLen(units []string, sepLen int) int {
	if len(units) == 0 {
		return 0
	}
	n := sepLen * (len(units) - 1)
	for _, u := range units {
		n += utf8.RuneCountInString(u)
	}
	return n
}

// windows slides a chunkSize window across the raw text with a step of
// chunkSize minus overlap, ignoring any linguistic boundaries.
func (p *Processor) windows(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := p.chunkSize - p.overlap
	if step <= 0 {
		step = p.chunkSize
	}

	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + p.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}
