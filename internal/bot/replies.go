package bot

// User-facing replies.
const (
	greetingText = "Привет! Я Генератор Дэшбордов ОКК.\n\n" +
		"Просто **отправьте мне текст ежедневного отчета**, и я сгенерирую интерактивный HTML-дашборд и отправлю его вам."

	statusText = "🚀 Начинаю анализ отчета и генерацию дашборда... Пожалуйста, подождите."

	readyCaption = "✅ Ваш интерактивный дашборд готов!"

	noDataText = "⚠️ Не удалось сгенерировать дашборд. Недостаточно данных в отчете."

	parseErrorTitle = "❌ **Ошибка формата отчета!**\n"

	rateLimitedText = "⏳ Слишком много отчетов подряд. Попробуйте через минуту."

	criticalText = "❌ Произошла критическая ошибка при обработке отчета. Проверьте логи сервера."
)
