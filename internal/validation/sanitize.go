// Package validation содержит функции валидации и очистки входных данных.
package validation

import (
	"strings"
	"unicode/utf8"
)

// MaxTextLength ограничение длины свободного текста после очистки.
const MaxTextLength = 200

var stripper = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "")

// SanitizeText удаляет символы разметки и кавычки, обрезает пробелы и длину.
func SanitizeText(s string) string {
	s = strings.TrimSpace(stripper.Replace(s))
	if utf8.RuneCountInString(s) <= MaxTextLength {
		return s
	}

	runes := []rune(s)
	return strings.TrimSpace(string(runes[:MaxTextLength]))
}

// IsValidAmount проверяет количество виртов для новой заявки.
// Сервер проверяет только нижнюю границу.
func IsValidAmount(amount, min int64) bool {
	return amount >= min
}
