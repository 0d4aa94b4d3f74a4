package email

const (
	subjectWelcome               = "Bem-vindo ao MediCRM"
	subjectReportReadyFmt        = "Seu relatório de gestão (%s) está pronto"
	subjectSubscriptionActiveFmt = "Assinatura %s ativada"
)
