package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"io/fs"
	"strings"

	"channel-hub/errors"
)

//go:embed blocklist/*
var blocklistFolder embed.FS

// BlocklistData carries the result of the loading process including
// metadata for logging.
type BlocklistData struct {
	Words     []string
	Languages []string
}

// LoadBlocklist scans the embedded blocklist directory, identifying .txt
// files as language dictionaries and parsing their contents into a unique
// list of words.
func LoadBlocklist() (*BlocklistData, error) {
	return loadBlocklistFrom(blocklistFolder, "blocklist")
}

func loadBlocklistFrom(f embed.FS, path string) (*BlocklistData, error) {
	entries, err := fs.ReadDir(f, path)
	if err != nil {
		return nil, err
	}

	var languages []string
	uniqueWords := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		// Track the language based on the filename (e.g., "fr.txt" -> "fr")
		lang := strings.TrimSuffix(entry.Name(), ".txt")
		languages = append(languages, lang)

		data, err := f.ReadFile(path + "/" + entry.Name())
		if err != nil {
			return nil, err
		}

		// Use a scanner to handle different line endings (\n vs \r\n) correctly
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				uniqueWords[line] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(uniqueWords) == 0 {
		return nil, errors.ErrEmptyWords
	}

	words := make([]string, 0, len(uniqueWords))
	for w := range uniqueWords {
		words = append(words, w)
	}

	return &BlocklistData{Words: words, Languages: languages}, nil
}
