package model

import (
	mapset "github.com/deckarep/golang-set/v2"
)

type Language string

const (
	LangKarelPascal Language = "kp"
	LangKarelJava   Language = "kj"
	LangC           Language = "c"
	LangCpp         Language = "cpp"
	LangJava        Language = "java"
	LangPython      Language = "py"
	LangRuby        Language = "rb"
	LangPerl        Language = "pl"
	LangCSharp      Language = "cs"
	LangPascal      Language = "p"
)

var supportedLanguages = mapset.NewSet(
	LangKarelPascal, LangKarelJava, LangC, LangCpp, LangJava,
	LangPython, LangRuby, LangPerl, LangCSharp, LangPascal,
)

func IsSupportedLanguage(code string) bool {
	return supportedLanguages.Contains(Language(code))
}

