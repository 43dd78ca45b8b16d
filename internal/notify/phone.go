package notify

import "strings"

// NormalizePhone strips formatting characters and converts local
// Israeli numbers (leading 0) to international 972 form, which both
// the SMS gateway and WhatsApp expect.
func NormalizePhone(phone string) string {
	repl := strings.NewReplacer("+", "", " ", "", "-", "", "(", "", ")", "")
	phone = repl.Replace(strings.TrimSpace(phone))

	// 05XXXXXXXX -> 9725XXXXXXXX
	if strings.HasPrefix(phone, "0") && len(phone) == 10 {
		phone = "972" + phone[1:]
	}
	// 9720XXXXXXXXX -> 972XXXXXXXXX (country code typed before the local 0)
	if strings.HasPrefix(phone, "9720") {
		phone = "972" + phone[4:]
	}
	return phone
}
