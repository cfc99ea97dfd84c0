package checkout

// MaskCardNumber keeps only the last four characters of number. Values of four
// characters or fewer are returned as they are.
func MaskCardNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	return "**** **** **** " + number[len(number)-4:]
}
