package service

import (
	"strings"
	"time"

	"github.com/noah-isme/sprs-api/internal/models"
)

const letterDateLayout = "02/01/2006"

// RenderLetter produces the permission letter for a request. The output only
// depends on its arguments.
func RenderLetter(requestType models.RequestType, form models.FormData, issuedOn time.Time) string {
	var b strings.Builder
	b.WriteString("Date: " + issuedOn.Format(letterDateLayout) + "\n\n")
	b.WriteString("To,\n")
	b.WriteString("The Head of Department,\n")
	b.WriteString(form.Branch + " Department\n\n")
	b.WriteString("Subject: Request for " + string(requestType) + "\n\n")
	b.WriteString("Respected Sir/Madam,\n\n")
	b.WriteString("I am " + form.Name)
	b.WriteString(", a student of " + form.Branch)
	b.WriteString(" department, Section " + form.Section)
	b.WriteString(", with Roll Number " + form.RollNo + ".\n\n")
	b.WriteString("I am writing to request permission for ")
	b.WriteString(strings.ToLower(string(requestType)) + " on ")
	b.WriteString(formatFormDate(form.Date))
	b.WriteString(" at " + form.Time + ".\n\n")
	b.WriteString("Reason: " + form.Reason + "\n\n")
	b.WriteString("I assure you that I will maintain discipline and follow all the guidelines. ")
	b.WriteString("I request you to kindly grant me permission for the same.\n\n")
	b.WriteString("Contact Number: " + form.Contact + "\n\n")
	b.WriteString("Thanking you,\n\n")
	b.WriteString("Yours sincerely,\n")
	b.WriteString(form.Name + "\n")
	b.WriteString("Roll No: " + form.RollNo + "\n")
	b.WriteString("Section: " + form.Section)
	return b.String()
}

func formatFormDate(raw string) string {
	parsed, err := time.Parse(models.FormDateLayout, raw)
	if err != nil {
		return raw
	}
	return parsed.Format(letterDateLayout)
}
