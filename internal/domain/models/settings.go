package models

import "strconv"

// SettingsKey is the storage key of the local preferences blob.
const SettingsKey = "leone_settings"

// Settings are local display and notification preferences.
type Settings struct {
	Currency          Currency `json:"currency" default:"SLL" validate:"oneof=SLL USD"`
	Krio              bool     `json:"krio"`
	EmailAlerts       bool     `json:"emailAlerts" default:"true"`
	SMSNotifications  bool     `json:"smsNotifications"`
	PushNotifications bool     `json:"pushNotifications" default:"true"`
}

// PreferenceQuery maps the blob onto the query parameters of PUT /users/preferences.
func (s Settings) PreferenceQuery() map[string][]string {
	lang := "en"
	if s.Krio {
		lang = "krio"
	}
	return map[string][]string{
		"notifications": {strconv.FormatBool(s.SMSNotifications || s.PushNotifications)},
		"email_alerts":  {strconv.FormatBool(s.EmailAlerts)},
		"language":      {lang},
	}
}
