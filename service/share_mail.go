// Package service holds background work done on behalf of handlers
package service

import (
	"errors"
	"fmt"
	"safedrop/file-api/model"

	"github.com/spf13/viper"
	"gopkg.in/gomail.v2"
)

var ErrMailNotConfigured = errors.New("no SMTP host configured")

// SendShareMail mails a share link for the given file to sendTo
func SendShareMail(f *model.File, sendTo string) error {
	host := viper.GetString("smtp.host")
	if host == "" {
		return ErrMailNotConfigured
	}

	from := viper.GetString("smtp.sender")
	if from == "" {
		from = viper.GetString("smtp.user")
	}

	if sendTo == from {
		return errors.New("invalid email address")
	}

	body := fmt.Sprintf(
		"<h2>File Shared With You</h2>"+
			"<p>Someone shared a file with you using SafeDrop.</p>"+
			"<p><strong>File Name:</strong> %s</p>"+
			"<p><strong>Size:</strong> %.2f MB</p>"+
			"<p><a href=%q>Download File</a></p>",
		f.Name, float64(f.Size)/1024/1024, f.ShortURL)

	if f.HasExpiry && f.ExpiresAt != nil {
		body += fmt.Sprintf("<p>This link will expire on %s</p>", f.ExpiresAt.Format("Jan 2, 2006 15:04 MST"))
	}

	if f.IsPasswordProtected {
		body += "<p>This file is password protected. Please contact the sender for the password.</p>"
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", sendTo)
	m.SetHeader("Subject", "File Shared With You")
	m.SetBody("text/html", body)

	d := gomail.NewDialer(host, viper.GetInt("smtp.port"), viper.GetString("smtp.user"), viper.GetString("smtp.password"))

	return d.DialAndSend(m)
}
