package models

import "time"

// AppSettings is the singleton configuration row consumed by the notification
// dispatcher. There is no in-memory cache; every dispatch reads the current row.
type AppSettings struct {
	SMTPEnabled  bool     `json:"smtpEnabled"`
	SMTPHost     string   `json:"smtpHost"`
	SMTPPort     int      `json:"smtpPort"`
	SMTPUsername string   `json:"smtpUsername"`
	SMTPPassword string   `json:"-"`
	SMTPFrom     string   `json:"smtpFrom"`
	// AdminRecipients receive a copy of every workflow notification.
	AdminRecipients []string  `json:"adminRecipients"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
