package conversation

import (
	"fmt"
	"strings"
	"time"
)

// systemPrompt builds the instruction message for one turn. The current date
// is injected so relative expressions like "amanhã" resolve against the
// clinic's wall clock rather than the model's guess.
func systemPrompt(now time.Time) string {
	var b strings.Builder
	b.WriteString("Você é o assistente virtual de agendamento de uma clínica. ")
	b.WriteString("Seja cordial, objetivo e responda no idioma do paciente.\n\n")
	b.WriteString(fmt.Sprintf("Hoje é %s, %s.\n\n", weekdayPT(now.Weekday()), now.Format("02/01/2006")))
	b.WriteString("Regras:\n")
	b.WriteString("- Use exclusivamente as ferramentas para consultar profissionais, datas e horários. Nunca invente disponibilidade.\n")
	b.WriteString("- Antes de marcar, listar ou cancelar consultas, identifique o paciente pelo CPF com find_patient.\n")
	b.WriteString("- Confirme profissional, data e horário com o paciente antes de chamar create_appointment.\n")
	b.WriteString("- Ofereça no máximo os horários retornados pelas ferramentas, em formato HH:MM.\n")
	b.WriteString("- Se o paciente pedir para falar com uma pessoa, ou se você não conseguir concluir o atendimento, chame handoff_to_booking.\n")
	b.WriteString("- Não dê conselhos médicos; para assuntos clínicos, oriente o paciente a falar com o profissional na consulta.")
	return b.String()
}

func weekdayPT(d time.Weekday) string {
	switch d {
	case time.Sunday:
		return "domingo"
	case time.Monday:
		return "segunda-feira"
	case time.Tuesday:
		return "terça-feira"
	case time.Wednesday:
		return "quarta-feira"
	case time.Thursday:
		return "quinta-feira"
	case time.Friday:
		return "sexta-feira"
	default:
		return "sábado"
	}
}
