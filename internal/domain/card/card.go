// Package card identifies credit card brands from BIN prefixes and card
// length, and validates numbers with the Luhn mod-10 checksum.
package card

import "strings"

// Brand is a credit card network accepted by the gateway.
type Brand string

const (
	BrandAmex       Brand = "Amex"
	BrandDiscover   Brand = "Discover"
	BrandMasterCard Brand = "MasterCard"
	BrandVisa       Brand = "Visa"
	BrandJCB        Brand = "JCB"
	BrandMaestro    Brand = "Maestro"
)

// brandSpec describes how to recognize one brand. Prefixes are matched as
// string prefixes, lengths must match exactly.
type brandSpec struct {
	brand    Brand
	lengths  []int
	prefixes []string
	checksum bool
}

// Table order matters: prefixes overlap between networks and the first
// matching brand wins.
var brandTable = []brandSpec{
	{BrandAmex, []int{15}, []string{"34", "37"}, true},
	{BrandDiscover, []int{16}, []string{"6011", "622", "64", "65"}, true},
	{BrandMasterCard, []int{16}, []string{"51", "52", "53", "54", "55"}, true},
	{BrandVisa, []int{13, 16}, []string{"4", "417500", "4917", "4913", "4508", "4844"}, true},
	{BrandJCB, []int{16}, []string{"35"}, true},
	{BrandMaestro, []int{12, 13, 14, 15, 16, 18, 19}, []string{"5018", "5020", "5038", "6304", "6759", "6761"}, true},
}

// Normalize strips the separators customers commonly type into card fields.
func Normalize(number string) string {
	number = strings.ReplaceAll(number, " ", "")
	return strings.ReplaceAll(number, "-", "")
}

// Classify returns the brand of a card number, or ok=false when no brand
// matches or the number fails its checksum. Input may contain spaces and
// dashes; any other non-digit characters simply fail to classify.
func Classify(number string) (Brand, bool) {
	number = Normalize(number)
	if number == "" {
		return "", false
	}

	for _, spec := range brandTable {
		if !spec.matches(number) {
			continue
		}
		if spec.checksum && !Luhn(number) {
			return "", false
		}
		return spec.brand, true
	}

	return "", false
}

func (s brandSpec) matches(number string) bool {
	matchesPrefix := false
	for _, prefix := range s.prefixes {
		if strings.HasPrefix(number, prefix) {
			matchesPrefix = true
			break
		}
	}
	if !matchesPrefix {
		return false
	}

	for _, length := range s.lengths {
		if len(number) == length {
			return true
		}
	}
	return false
}

// Luhn reports whether the digit string passes the mod-10 checksum. Every
// second digit from the right is doubled, digits of doubled values above 9
// are summed (n-9), and the total must be divisible by 10. Any non-digit
// character fails the check.
func Luhn(number string) bool {
	sum := 0
	double := false

	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			return false
		}
		n := int(c - '0')
		if double {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		double = !double
	}

	return sum%10 == 0
}
