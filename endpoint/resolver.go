package endpoint

import (
	"strings"
)

// Specifier grammar:
//
//	local  := any path not matching remote
//	remote := [user "@"] host ":" path
//	host   := bare-name | "[" ipv6 "]"
//
// A specifier is remote exactly when it contains a colon that is not
// covered by one of two exceptions, both of which force a local reading:
// a single alphabetic character directly followed by ':' with no '@'
// anywhere in the specifier (a Windows drive letter), and a specifier
// beginning with `\\` (a UNC path). A host literally named after a drive
// letter therefore cannot be written in single-letter form; bracketing or
// a user prefix disambiguates.

// maxNameLen bounds host and user names.
const maxNameLen = 255

// Parse classifies one raw specifier as Local or Remote and, for Remote,
// decomposes it into user, host and path. It never touches the filesystem.
func Parse(field, spec string) (Endpoint, error) {
	if spec == "" {
		return Endpoint{}, NewValidationError(field, spec, "empty specifier")
	}
	if isUNCPath(spec) || isDriveLetterPath(spec) {
		return Endpoint{Locality: Local, Path: spec}, nil
	}
	if !strings.Contains(spec, ":") {
		return Endpoint{Locality: Local, Path: spec}, nil
	}
	return parseRemote(field, spec)
}

// isDriveLetterPath matches C:\..., c:/... and bare C: forms. An '@'
// anywhere in the specifier disables the exception so hosts like "u@c"
// stay expressible.
func isDriveLetterPath(spec string) bool {
	if len(spec) < 2 || spec[1] != ':' {
		return false
	}
	c := spec[0]
	if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
		return false
	}
	return !strings.Contains(spec, "@")
}

// isUNCPath matches \\server\share\... forms.
func isUNCPath(spec string) bool {
	return strings.HasPrefix(spec, `\\`)
}

func parseRemote(field, spec string) (Endpoint, error) {
	fail := func(reason string) (Endpoint, error) {
		return Endpoint{}, NewValidationError(field, spec, reason)
	}

	user, rest := splitUser(spec)
	if user == "" && strings.HasPrefix(spec, "@") {
		return fail("empty user before '@'")
	}
	if rest == "" {
		return fail("nothing after '@'")
	}

	var host, path string
	if rest[0] == '[' {
		// Bracketed host, the only way to spell an IPv6 literal.
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return fail("unmatched '[' in host")
		}
		host = rest[1:end]
		if host == "" {
			return fail("empty host between brackets")
		}
		if end+1 >= len(rest) || rest[end+1] != ':' {
			return fail("missing ':' after bracketed host")
		}
		path = rest[end+2:]
	} else {
		sep := strings.IndexByte(rest, ':')
		if sep < 0 {
			return fail("missing ':' separator")
		}
		host = rest[:sep]
		path = rest[sep+1:]
		if host == "" {
			return fail("empty host before ':'")
		}
		if strings.ContainsAny(host, "[]") {
			return fail("unmatched bracket in host")
		}
		// An unbracketed host holds no colons, so a remainder that has
		// more colons without being rooted is indistinguishable from a
		// chopped-up IPv6 literal.
		if strings.Contains(path, ":") && !strings.HasPrefix(path, "/") {
			return fail("ambiguous colons; bracket IPv6 hosts as [addr]:path")
		}
	}

	if strings.Contains(host, "@") {
		return fail("more than one '@'")
	}
	if path == "" {
		return fail("empty remote path")
	}
	if strings.ContainsAny(path, " \t") {
		return fail("whitespace in remote path")
	}
	if strings.ContainsAny(host, " \t") {
		return fail("whitespace in host")
	}
	if len(host) > maxNameLen {
		return fail("host exceeds 255 characters")
	}
	if strings.ContainsAny(user, " \t") {
		return fail("whitespace in user")
	}
	if len(user) > maxNameLen {
		return fail("user exceeds 255 characters")
	}

	return Endpoint{
		Locality: Remote,
		User:     user,
		Host:     host,
		Path:     path,
	}, nil
}

// splitUser peels "user@" off the front of a specifier when the '@' comes
// before the separator colon, which keeps an '@' inside a remote path from
// being read as a login name.
func splitUser(spec string) (user, rest string) {
	at := strings.IndexByte(spec, '@')
	if at < 0 {
		return "", spec
	}
	colon := strings.IndexByte(spec, ':')
	if colon >= 0 && colon < at {
		return "", spec
	}
	return spec[:at], spec[at+1:]
}

// Options carries the CLI-level settings the resolver folds into the
// remote endpoint.
type Options struct {
	// Port is the remote channel port applied to the remote endpoint.
	Port int

	// User is a fallback login name, used only when the remote specifier
	// does not name one itself.
	User string
}

// Resolve parses the source and destination specifiers, checks that
// exactly one of them is remote, and fixes the transfer direction.
func Resolve(srcSpec, dstSpec string, opts Options) (Resolution, error) {
	src, err := Parse("source", srcSpec)
	if err != nil {
		return Resolution{}, err
	}
	dst, err := Parse("destination", dstSpec)
	if err != nil {
		return Resolution{}, err
	}

	switch {
	case src.IsRemote() && dst.IsRemote():
		return Resolution{}, NewValidationError("endpoints", "",
			"both specifiers are remote; exactly one side must be local")
	case !src.IsRemote() && !dst.IsRemote():
		return Resolution{}, NewValidationError("endpoints", "",
			"both specifiers are local; one side must be [user@]host:path")
	}

	res := Resolution{Source: src, Destination: dst, Direction: Push}
	if src.IsRemote() {
		res.Direction = Pull
	}
	if res.Source.IsRemote() {
		res.Source = applyOptions(res.Source, opts)
	} else {
		res.Destination = applyOptions(res.Destination, opts)
	}
	return res, nil
}

func applyOptions(e Endpoint, opts Options) Endpoint {
	e.Port = opts.Port
	if e.User == "" {
		e.User = opts.User
	}
	return e
}
