package email

const (
	subjectOfferSubmittedFmt     = "Ny offert från %s"
	subjectJobStatusFmt          = "Din flytt: %s"
	subjectPartnerApprovedFmt    = "%s är godkänd som flyttfirma"
	subjectPartnerStatusFmt      = "Uppdatering av er ansökan: %s"
	subjectPartnerApplicationFmt = "Ny ansökan från %s"
)
