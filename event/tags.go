package event

import "strings"

// DefaultHashtagAlphabet is the character set a hashtag may be built
// from. Callers pass it (or a stricter set) to ExtractHashtags rather
// than the function reading ambient state.
const DefaultHashtagAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// EventTag builds an "e" tag referencing another event id.
func EventTag(id string) []string { return []string{"e", id} }

// PubKeyTag builds a "p" tag referencing a public key.
func PubKeyTag(pubkey string) []string { return []string{"p", pubkey} }

// HashtagTag builds a "t" tag for a hashtag (without the leading '#').
func HashtagTag(tag string) []string { return []string{"t", tag} }

// ExtractHashtags scans content for '#'-prefixed words and returns the
// hashtags found, without the '#'. A hashtag ends at the first
// character outside alphabet.
func ExtractHashtags(content, alphabet string) []string {
	var tags []string
	for i := 0; i < len(content); i++ {
		if content[i] != '#' {
			continue
		}
		j := i + 1
		for j < len(content) && strings.IndexByte(alphabet, content[j]) >= 0 {
			j++
		}
		if j > i+1 {
			tags = append(tags, content[i+1:j])
		}
		i = j - 1
	}
	return tags
}
