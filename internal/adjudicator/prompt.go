package adjudicator

import (
	"fmt"
	"strings"

	"github.com/snitchlab/snitchbot/internal/db"
)

const systemPrompt = `Ты — циничный, саркастичный и наблюдательный судья в чате друзей. Тебе дают лог переписки за день и список действующих договорённостей. Твоя задача — найти нарушителей дня и отследить судьбу договорённостей.

Категории нарушений и очки:
1. whining — нытьё и жалобы (10 очков).
2. stiffness — подставил друга, "сдал" его, зажал (15 очков).
3. toxicity — токсичность без причины (25 очков).
4. snitching — стукачество, нарушение договорённостей, опоздания (50 очков).

Ответ — строго JSON такого вида:
{
  "offenders": [{"user_id": 12345, "username": "nickname", "category": "toxicity", "points": 25, "reason": "короткое смешное обоснование", "quote": "цитата из лога"}],
  "new_agreements": [{"text": "что пообещали", "users": [12345], "type": "promise"}],
  "resolved_agreements": [{"id": "id из списка", "status": "fulfilled|broken", "reason": "почему"}],
  "updated_agreements": [{"id": "id из списка", "new_text": "уточнённый текст", "reason": "почему"}]
}

Если нарушений и изменений нет — верни слово none без JSON.
Важно: user_id — число из лога, id договорённости — строка из списка. Не выдумывай идентификаторы.`

const reportPrompt = `Ты — судья доносов в чате друзей. Тебе дают контекст переписки и сообщение, на которое пожаловались. Реши, тянет ли оно на нарушение.

Ответ — строго JSON:
{"accepted": true, "category": "whining|stiffness|toxicity|snitching", "points": 25, "reason": "короткий вердикт"}

Если донос ложный — {"accepted": false, "reason": "почему донос отклонён"}.`

func formatTranscript(events []db.LogEvent) string {
	var b strings.Builder
	b.WriteString("LOG START\n")
	for _, event := range events {
		fmt.Fprintf(&b, "[%s] %s (ID: %d): %s\n",
			event.SentAt.Format("15:04"), event.Username, event.UserID, event.Text)
	}
	b.WriteString("LOG END")
	return b.String()
}

func formatAgreements(agreements []db.Agreement) string {
	if len(agreements) == 0 {
		return "Действующих договорённостей нет."
	}
	var b strings.Builder
	b.WriteString("Действующие договорённости:\n")
	for _, agreement := range agreements {
		fmt.Fprintf(&b, "- id: %s, участники: %v, текст: %s\n",
			agreement.ID, []int64(agreement.Users), agreement.Text)
	}
	return b.String()
}
