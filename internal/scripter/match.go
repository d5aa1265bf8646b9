// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package scripter

import (
	"regexp"
	"strings"
)

// MatchesPattern reports whether url matches pattern. '*' matches any run
// of characters; everything else is literal. The whole URL must match.
func MatchesPattern(url, pattern string) bool {
	expr := "^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, ".*") + "$"
	re, err := regexp.Compile(expr)
	if err != nil {
		return false
	}
	return re.MatchString(url)
}
