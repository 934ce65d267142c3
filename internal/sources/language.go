package sources

import (
	"regexp"
	"strings"
)

// LanguageInfo describes a language-scoped package token like
// python3Packages.requests: the bare package name, the interpreter whose
// withPackages block hosts it, and the package-set attribute.
type LanguageInfo struct {
	BareName    string
	Interpreter string
	PkgSetAttr  string
}

var languageTokenRe = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9_]*?(?:Packages|\.pkgs))\.([a-zA-Z0-9_][a-zA-Z0-9_.-]*)$`)

// DetectLanguagePackage recognizes the `<interp>Packages.<pkg>` pattern
// (python3Packages.requests, python313Packages.*, luaPackages.lpeg,
// nodePackages.typescript, rubyPackages.rails, lua5_4.pkgs.lpeg).
func DetectLanguagePackage(token string) (*LanguageInfo, bool) {
	captures := languageTokenRe.FindStringSubmatch(token)
	if captures == nil {
		return nil, false
	}
	pkgSet, bare := captures[1], captures[2]

	interp, ok := interpreterFor(pkgSet)
	if !ok {
		return nil, false
	}
	return &LanguageInfo{BareName: bare, Interpreter: interp, PkgSetAttr: pkgSet}, true
}

func interpreterFor(pkgSet string) (string, bool) {
	if rest, ok := strings.CutSuffix(pkgSet, ".pkgs"); ok {
		// lua5_4.pkgs style: the prefix is the interpreter itself.
		return rest, true
	}
	base, ok := strings.CutSuffix(pkgSet, "Packages")
	if !ok {
		return "", false
	}
	switch {
	case strings.HasPrefix(base, "python"):
		return base, true
	case base == "lua":
		// Bare luaPackages maps to the default lua interpreter.
		return "lua5_4", true
	case strings.HasPrefix(base, "lua"):
		return base, true
	case base == "node":
		return "nodejs", true
	case base == "ruby":
		return "ruby", true
	}
	return "", false
}
