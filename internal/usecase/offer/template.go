package offer

import "html/template"

type letterData struct {
	Company   string
	Date      string
	Name      string
	Signee    string
	Opening   template.HTML
	Salary    string
	StartDate string
}

var letterTemplate = template.Must(template.New("offer").Parse(`
<div style="font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; max-width: 700px; margin: 0 auto; background: #ffffff; padding: 40px; border: 1px solid #e2e8f0; border-radius: 8px; color: #334155; line-height: 1.6;">
  <div style="display: flex; justify-content: space-between; align-items: center; border-bottom: 2px solid #f1f5f9; padding-bottom: 20px; margin-bottom: 30px;">
    <h1 style="margin: 0; color: #2563eb; font-size: 24px;">{{.Company}}</h1>
    <span style="color: #64748b; font-size: 14px;">{{.Date}}</span>
  </div>

  <p style="font-size: 16px; margin-bottom: 20px;"><strong>Dear {{.Name}},</strong></p>

  <p style="margin-bottom: 20px;">{{.Opening}}</p>

  <h3 style="color: #0f172a; border-bottom: 1px solid #e2e8f0; padding-bottom: 8px; margin-top: 30px;">Compensation Package</h3>
  <table style="width: 100%; border-collapse: collapse; margin-bottom: 20px; font-size: 15px;">
    <tr style="background-color: #f8fafc;">
      <td style="padding: 12px; border: 1px solid #e2e8f0; font-weight: 600;">Annual Base Salary</td>
      <td style="padding: 12px; border: 1px solid #e2e8f0;">{{.Salary}}</td>
    </tr>
    <tr>
      <td style="padding: 12px; border: 1px solid #e2e8f0; font-weight: 600;">Performance Bonus</td>
      <td style="padding: 12px; border: 1px solid #e2e8f0;">10% of Base Salary</td>
    </tr>
    <tr style="background-color: #f8fafc;">
      <td style="padding: 12px; border: 1px solid #e2e8f0; font-weight: 600;">Stock Options</td>
      <td style="padding: 12px; border: 1px solid #e2e8f0;">500 RSUs (4-year vesting)</td>
    </tr>
    <tr>
      <td style="padding: 12px; border: 1px solid #e2e8f0; font-weight: 600;">Signing Bonus</td>
      <td style="padding: 12px; border: 1px solid #e2e8f0;">$5,000</td>
    </tr>
  </table>

  <h3 style="color: #0f172a; border-bottom: 1px solid #e2e8f0; padding-bottom: 8px; margin-top: 30px;">Benefits &amp; Perks</h3>
  <ul style="margin-bottom: 20px; padding-left: 20px;">
    <li style="margin-bottom: 8px;">Comprehensive Health, Dental, and Vision Insurance</li>
    <li style="margin-bottom: 8px;">401(k) Retirement Plan with Company Match</li>
    <li style="margin-bottom: 8px;">20 Days Paid Time Off (PTO) plus Public Holidays</li>
    <li style="margin-bottom: 8px;">Flexible Remote-First Work Environment</li>
  </ul>

  <p style="margin-top: 30px;"><strong>Start Date:</strong> We anticipate your start date to be <strong>{{.StartDate}}</strong>.</p>

  <p style="margin-bottom: 40px;">We look forward to building the future of AI with you. Please sign below to accept this offer.</p>

  <div style="display: flex; justify-content: space-between; margin-top: 60px;">
    <div style="border-top: 1px solid #cbd5e1; padding-top: 10px; width: 40%;">
      <p style="margin: 0; font-weight: 600; color: #0f172a;">Hiring Manager</p>
      <p style="margin: 0; font-size: 14px; color: #64748b;">{{.Company}}</p>
    </div>
    <div style="border-top: 1px solid #cbd5e1; padding-top: 10px; width: 40%;">
      <p style="margin: 0; font-weight: 600; color: #0f172a;">{{.Signee}}</p>
      <p style="margin: 0; font-size: 14px; color: #64748b;">Candidate</p>
    </div>
  </div>

  <div style="text-align: center; margin-top: 50px;">
    <a href="#" style="background-color: #2563eb; color: white; padding: 12px 30px; text-decoration: none; border-radius: 6px; font-weight: 600; font-size: 16px; display: inline-block;">Accept Offer</a>
  </div>
</div>
`))
