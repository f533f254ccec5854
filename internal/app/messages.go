package service

// User-facing texts shown by the pages.
const (
	TitleSubmitted    = "Avaliação Enviada com Sucesso!"
	MessageSubmitted  = "O candidato foi avaliado e a notificação foi disparada."
	TitleSubmitFailed = "Erro ao Enviar!"
	TitleReport       = "Relatório Gerado!"
	TitleReportFailed = "Erro ao Gerar Relatório!"

	MessageAuthFailed   = "Falha na autenticação. Não será possível salvar os dados."
	MessageAuthNotReady = "A autenticação ainda não está pronta. Tente novamente em alguns segundos."
	MessageWriteFailed  = "Não foi possível salvar os dados. Verifique sua conexão ou a configuração do armazenamento. Detalhes: "
	MessageReadFailed   = "Não foi possível carregar os dados. Verifique a configuração do armazenamento e sua conexão."
	MessageInFlight     = "Uma avaliação já está sendo enviada. Aguarde."
	MessageReportBusy   = "Um relatório já está sendo gerado. Aguarde."
)
