// ABOUTME: Partial injection: literal substitution of a placeholder token with a shared markup fragment.
// ABOUTME: No markup parsing is done, so malformed HTML in either input passes through unchanged.
package site

import "strings"

// Inject replaces every occurrence of token in page with partial. A page
// without the token, or an empty token, is returned unchanged.
func Inject(page, partial, token string) string {
	if token == "" || !strings.Contains(page, token) {
		return page
	}
	return strings.ReplaceAll(page, token, partial)
}
