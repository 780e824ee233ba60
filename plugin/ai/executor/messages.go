package executor

import "fmt"

func notUnderstood(locale string) string {
	if locale == "kz" {
		return "Кешіріңіз, сұрағыңызды түсінбедім. Басқаша айтып көріңізші."
	}
	return "Извините, я не понял запрос. Попробуйте сформулировать иначе."
}

func cancelNotSupported(locale string) string {
	if locale == "kz" {
		return "Өкінішке орай, мен кездесулерді мәтін арқылы өшіре алмаймын."
	}
	return "К сожалению, я пока не умею удалять встречи через текст."
}

func recallEmpty(locale string) string {
	if locale == "kz" {
		return "Өкінішке орай, осы тақырып бойынша ақпарат таппадым."
	}
	return "К сожалению, не нашёл информации по этому вопросу в памяти."
}

func recallRaw(excerpt, locale string) string {
	if locale == "kz" {
		return "Мен мынаны таптым:\n\n" + excerpt
	}
	return "Вот что я нашёл:\n\n" + excerpt
}

func moduleNotFound(intent, locale string) string {
	if locale == "kz" {
		return fmt.Sprintf("⚠️ «%s» модулі табылмады.", intent)
	}
	return fmt.Sprintf("⚠️ Модуль «%s» не найден.", intent)
}

func executionFailed(name string) string {
	return "⚠️ Не удалось выполнить: " + name
}
