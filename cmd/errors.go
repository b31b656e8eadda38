package cmd

import "errors"

// ErrRLSAddrRequired is returned by cached when neither --rls nor MULE_RLS
// names an RLS endpoint.
var ErrRLSAddrRequired = errors.New("cmd: --rls or MULE_RLS is required")

// ErrCacheAddrRequired is returned by a client command when neither
// --cache nor MULE_CACHED names a cache endpoint.
var ErrCacheAddrRequired = errors.New("cmd: --cache or MULE_CACHED is required")

// ErrMalformedPairArg is returned when a multiget/multiput argument is not
// of the form key=value.
var ErrMalformedPairArg = errors.New("cmd: malformed pair argument")
