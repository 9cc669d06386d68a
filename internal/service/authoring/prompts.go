package authoring

import "fmt"

// PromptKind identifies which template produced a model call.
type PromptKind string

const (
	KindClarification PromptKind = "clarification"
	KindReport        PromptKind = "report"
	KindDate          PromptKind = "date"
	KindLocation      PromptKind = "location"
	KindKeywords      PromptKind = "keywords"
	KindQuestion      PromptKind = "question"
)

// completionPhrase 模型认为信息完整时返回的固定短语（小写比较）。
const completionPhrase = "bericht vollständig"

func clarificationPrompt(collected string) string {
	return fmt.Sprintf(`Analysiere den folgenden Bericht und stelle bis zu 5 gezielte Fragen zu fehlenden oder unklaren Informationen:

„%s“

Nur wenn wichtige Infos fehlen (z. B. Ort, Zeit, Beteiligte, Ablauf, Schäden, Maßnahmen), formuliere kurze, sachliche Fragen – eine pro Zeile.
Wenn alles klar und vollständig ist, antworte nur mit: Bericht vollständig.
`, collected)
}

func reportPrompt(collected string) string {
	return fmt.Sprintf(`Erstelle aus diesen Informationen einen vollständigen, fachlich korrekten polizeilichen Tatortbericht:

„%s“

Verwende keinerlei Markup (keine Sternchen, Nummerierungen, Überschriften o. Ä.).
Gib den Header exakt so aus (jeweils eine Zeile):
TITEL: <Kurz in 5 Wörtern>
DATUM: <dd.MM.yyyy, HH:mm> oder %[2]s
ORT: <Ort> oder %[2]s
BEAMTER: <Name des Beamten>

Danach Fließtext in Absätzen ohne Listen, mit folgenden Abschnitten:
Beschreibung des Geschehens
Zustand und Schäden
Beteiligte Personen
Zusätzliche Informationen
`, collected, unknownSentinel)
}

func datePrompt(collected string) string {
	return fmt.Sprintf(`Im Text: "%s"
Finde Datum und Uhrzeit des Vorfalls und gib es im ISO-8601-Format zurück (z. B. 2025-07-27T15:04:00Z). Wenn nicht vorhanden, antworte mit %s.
`, collected, unknownSentinel)
}

func locationPrompt(collected string) string {
	return fmt.Sprintf(`Im Text: "%s"
Wo fand der Vorfall statt? Gib nur den Ort zurück oder %s.
`, collected, unknownSentinel)
}

func keywordsPrompt(collected string) string {
	return fmt.Sprintf(`Nenne drei prägnante Keywords, die die Situation dieses Textes zusammenfassen:
"%s"
Antworte als kommagetrennte Liste, ohne weitere Zusätze.
`, collected)
}

func questionPrompt(content, question string) string {
	return fmt.Sprintf(`Hier ist ein polizeilicher Bericht:

„%s“

Beantworte die folgende Frage kurz und sachlich, ausschließlich auf Grundlage dieses Berichts. Steht die Antwort nicht im Bericht, antworte mit %s.

Frage: %s
`, content, unknownSentinel, question)
}
