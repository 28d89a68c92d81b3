package discovery

import "errors"

var (
	// ErrSourceRoot is returned when the suite source root cannot be walked.
	ErrSourceRoot = errors.New("walk test source root")
	// ErrInvalidFilter is returned when the name filter is not a valid regular expression.
	ErrInvalidFilter = errors.New("invalid test filter")
)
