package ldapauth

// maskSensitiveData masks usernames, DNs and server names before they are
// handed to the logger. Short values are fully masked so that length does
// not leak.
func maskSensitiveData(data string) string {
	if len(data) <= 4 {
		return "***"
	}
	return data[:2] + "***" + data[len(data)-2:]
}
