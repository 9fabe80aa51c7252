package words

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/jmcvetta/randutil"
)

// Provider serves the word/category dataset. The dataset is loaded
// once at startup and never mutated afterwards, so reads need no
// locking.
type Provider struct {
	names map[string]string
	words map[string][]string
	keys  []string
}

type dataset struct {
	Categories map[string]categoryData `json:"categories"`
}

type categoryData struct {
	Name  string   `json:"name"`
	Words []string `json:"words"`
}

// Load reads the game dataset from a JSON file.
func Load(path string) (*Provider, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var data dataset
	if err := json.Unmarshal(bytes, &data); err != nil {
		return nil, err
	}
	if len(data.Categories) == 0 {
		return nil, fmt.Errorf("word dataset %s contains no categories", path)
	}

	p := &Provider{
		names: make(map[string]string, len(data.Categories)),
		words: make(map[string][]string, len(data.Categories)),
	}
	for key, cat := range data.Categories {
		if len(cat.Words) == 0 {
			return nil, fmt.Errorf("category %q has no words", key)
		}
		p.names[key] = cat.Name
		p.words[key] = cat.Words
		p.keys = append(p.keys, key)
	}
	sort.Strings(p.keys)
	return p, nil
}

// Has reports whether key is a known category. "random" is always
// accepted as a selector.
func (p *Provider) Has(key string) bool {
	if key == "random" {
		return true
	}
	_, ok := p.words[key]
	return ok
}

func (p *Provider) WordsFor(key string) []string {
	return p.words[key]
}

// DisplayName returns the human-readable name of a category, falling
// back to the key itself.
func (p *Provider) DisplayName(key string) string {
	if name, ok := p.names[key]; ok {
		return name
	}
	return key
}

// Categories returns the key -> display name mapping sent to clients.
func (p *Provider) Categories() map[string]string {
	out := make(map[string]string, len(p.names))
	for k, v := range p.names {
		out[k] = v
	}
	return out
}

func (p *Provider) RandomCategory() (string, error) {
	return randutil.ChoiceString(p.keys)
}

func (p *Provider) RandomWord(key string) (string, error) {
	list, ok := p.words[key]
	if !ok {
		return "", fmt.Errorf("unknown category %q", key)
	}
	return randutil.ChoiceString(list)
}
