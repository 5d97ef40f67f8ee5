package email

const (
	subjectAssignmentOfferFmt  = "Nieuwe klus %s wacht op uw reactie"
	subjectEscalationRaisedFmt = "Escalatie gemeld voor klus %s"
	subjectProviderExpelled    = "Uw account is geschorst"
	subjectPriceProposalFmt    = "Prijsvoorstel voor klus %s"
	subjectJobStartReminderFmt = "Herinnering: klus %s start binnenkort"
)
