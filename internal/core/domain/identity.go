package domain

import "regexp"

// userIDPattern matches the external identifiers the chat platform
// hands out: plain decimal ids, up to 20 digits.
var userIDPattern = regexp.MustCompile(`^[0-9]{1,20}$`)

// dangerousChars screens for characters that have no business inside
// an identifier and usually signal an injection attempt.
var dangerousChars = regexp.MustCompile(`[<>'"\\/;]`)

// ValidUserID reports whether id is a well-formed external user id.
func ValidUserID(id string) bool {
	return userIDPattern.MatchString(id) && !dangerousChars.MatchString(id)
}
