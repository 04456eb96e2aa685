// Package texts is the uz/ru message catalog.
package texts

import (
	"fmt"

	"consultbot/internal/model"
)

type Key string

const (
	Welcome         Key = "welcome"
	SubscribeGate   Key = "subscribe_gate"
	NotSubscribed   Key = "not_subscribed"
	VerifyFailed    Key = "verify_failed"
	BtnSubscribe    Key = "btn_subscribe"
	BtnCheck        Key = "btn_check"
	ChooseDate      Key = "choose_date"
	NoDates         Key = "no_dates"
	AllDatesTaken   Key = "all_dates_taken"
	DateBooked      Key = "date_booked"
	DateTaken       Key = "date_taken"
	CommitConflict  Key = "commit_conflict"
	EnterFullName   Key = "enter_fullname"
	BadFullName     Key = "bad_fullname"
	EnterPhone      Key = "enter_phone"
	BadPhone        Key = "bad_phone"
	EnterAddress    Key = "enter_address"
	BadAddress      Key = "bad_address"
	EnterCompany    Key = "enter_company"
	BadCompany      Key = "bad_company"
	Registered      Key = "registered"
	SaveFailed      Key = "save_failed"
	GenericError    Key = "generic_error"
	Cancelled       Key = "cancelled"
	BtnCancel       Key = "btn_cancel"
	Outdated        Key = "outdated"
	RelaySent       Key = "relay_sent"
	MyRegistration  Key = "my_registration"
	NoRegistration  Key = "no_registration"
	PickFromList    Key = "pick_from_list"
	ChooseLanguage  Key = "choose_language"
	NewRegistration Key = "new_registration"
	RelayMessage    Key = "relay_message"
	BtnReply        Key = "btn_reply"

	AdminMenu          Key = "admin_menu"
	AccessDenied       Key = "access_denied"
	BtnRegistrations   Key = "btn_registrations"
	BtnDates           Key = "btn_dates"
	BtnExport          Key = "btn_export"
	BtnClear           Key = "btn_clear"
	BtnBack            Key = "btn_back"
	BtnAddDate         Key = "btn_add_date"
	BtnRemoveDate      Key = "btn_remove_date"
	BtnSave            Key = "btn_save"
	BtnConfirm         Key = "btn_confirm"
	BtnClearRegs       Key = "btn_clear_regs"
	BtnClearDates      Key = "btn_clear_dates"
	BtnPrev            Key = "btn_prev"
	BtnNext            Key = "btn_next"
	RegistrationsPage  Key = "registrations_page"
	RegistrationsEmpty Key = "registrations_empty"
	RegistrationLine   Key = "registration_line"
	DatesMenu          Key = "dates_menu"
	DateLineFree       Key = "date_line_free"
	DateLineBooked     Key = "date_line_booked"
	DateLineInactive   Key = "date_line_inactive"
	PickDates          Key = "pick_dates"
	DateSelected       Key = "date_selected"
	DateAlreadyPicked  Key = "date_already_picked"
	NoDatesSelected    Key = "no_dates_selected"
	DatesSaved         Key = "dates_saved"
	RemovePrompt       Key = "remove_prompt"
	DateRemoved        Key = "date_removed"
	NoActiveDates      Key = "no_active_dates"
	ReplyPrompt        Key = "reply_prompt"
	ReplySent          Key = "reply_sent"
	ReplyFailed        Key = "reply_failed"
	ReplyEmpty         Key = "reply_empty"
	ExportConfirm      Key = "export_confirm"
	NothingToExport    Key = "nothing_to_export"
	ExportCaption      Key = "export_caption"
	ExportFailed       Key = "export_failed"
	ClearMenu          Key = "clear_menu"
	ClearRegsConfirm   Key = "clear_regs_confirm"
	ClearDatesConfirm  Key = "clear_dates_confirm"
	RegsCleared        Key = "regs_cleared"
	DatesCleared       Key = "dates_cleared"
)

var catalog = map[Key]map[model.Language]string{
	Welcome: {
		model.LangUz: "Assalomu alaykum! Tilni tanlang.\nЗдравствуйте! Выберите язык.",
		model.LangRu: "Assalomu alaykum! Tilni tanlang.\nЗдравствуйте! Выберите язык.",
	},
	ChooseLanguage: {
		model.LangUz: "Iltimos, tugmalardan birini tanlang.",
		model.LangRu: "Пожалуйста, выберите язык кнопкой.",
	},
	SubscribeGate: {
		model.LangUz: "Davom etish uchun kanalimizga obuna bo'ling, so'ng \"Tekshirish\" tugmasini bosing.",
		model.LangRu: "Чтобы продолжить, подпишитесь на наш канал и нажмите «Проверить».",
	},
	NotSubscribed: {
		model.LangUz: "Siz hali kanalga obuna bo'lmagansiz.",
		model.LangRu: "Вы ещё не подписаны на канал.",
	},
	VerifyFailed: {
		model.LangUz: "Obunani tekshirib bo'lmadi. Birozdan so'ng qayta urinib ko'ring.",
		model.LangRu: "Не удалось проверить подписку. Попробуйте ещё раз чуть позже.",
	},
	BtnSubscribe: {model.LangUz: "📢 Kanalga o'tish", model.LangRu: "📢 Перейти в канал"},
	BtnCheck:     {model.LangUz: "✅ Tekshirish", model.LangRu: "✅ Проверить"},
	ChooseDate: {
		model.LangUz: "📅 Uchrashuv sanasini tanlang:",
		model.LangRu: "📅 Выберите дату встречи:",
	},
	NoDates: {
		model.LangUz: "Hozircha bo'sh sanalar yo'q. Keyinroq urinib ko'ring: /start",
		model.LangRu: "Свободных дат пока нет. Попробуйте позже: /start",
	},
	AllDatesTaken: {
		model.LangUz: "Hozir barcha sanalar band. Bo'shashini kuting yoki bekor qiling.",
		model.LangRu: "Сейчас все даты заняты. Дождитесь освобождения или отмените запись.",
	},
	DateBooked: {
		model.LangUz: "❌ %s sanasi band.",
		model.LangRu: "❌ Дата %s уже занята.",
	},
	DateTaken: {
		model.LangUz: "❌ %s sanasi hozirgina band qilindi. Boshqa sanani tanlang.",
		model.LangRu: "❌ Дату %s только что заняли. Выберите другую.",
	},
	CommitConflict: {
		model.LangUz: "❌ Afsuski, %s sanasi band bo'lib qoldi. Ma'lumotlaringiz saqlandi, boshqa sanani tanlang.",
		model.LangRu: "❌ К сожалению, дату %s уже заняли. Ваши данные сохранены, выберите другую дату.",
	},
	EnterFullName: {
		model.LangUz: "Ism-familiyangizni kiriting:",
		model.LangRu: "Введите ваше имя и фамилию:",
	},
	BadFullName: {
		model.LangUz: "Ism-familiya kamida %d ta belgidan iborat bo'lishi kerak.",
		model.LangRu: "Имя и фамилия должны содержать не менее %d символов.",
	},
	EnterPhone: {
		model.LangUz: "Telefon raqamingizni kiriting (+998XXXXXXXXX):",
		model.LangRu: "Введите номер телефона (+998XXXXXXXXX):",
	},
	BadPhone: {
		model.LangUz: "Noto'g'ri raqam. Namuna: +998901234567",
		model.LangRu: "Неверный номер. Пример: +998901234567",
	},
	EnterAddress: {
		model.LangUz: "Manzilingizni kiriting:",
		model.LangRu: "Введите ваш адрес:",
	},
	BadAddress: {
		model.LangUz: "Manzil kamida %d ta belgidan iborat bo'lishi kerak.",
		model.LangRu: "Адрес должен содержать не менее %d символов.",
	},
	EnterCompany: {
		model.LangUz: "Korxona nomini kiriting:",
		model.LangRu: "Введите название компании:",
	},
	BadCompany: {
		model.LangUz: "Korxona nomi kamida %d ta belgidan iborat bo'lishi kerak.",
		model.LangRu: "Название компании должно содержать не менее %d символов.",
	},
	Registered: {
		model.LangUz: "✅ Ro'yxatdan o'tdingiz!\n\n📅 Sana: %s\n👤 %s\n📞 %s\n📍 %s\n🏢 %s",
		model.LangRu: "✅ Вы зарегистрированы!\n\n📅 Дата: %s\n👤 %s\n📞 %s\n📍 %s\n🏢 %s",
	},
	SaveFailed: {
		model.LangUz: "⚠️ Ma'lumotlarni saqlab bo'lmadi. Korxona nomini qayta yuboring.",
		model.LangRu: "⚠️ Не удалось сохранить данные. Отправьте название компании ещё раз.",
	},
	GenericError: {
		model.LangUz: "⚠️ Xatolik yuz berdi. Keyinroq urinib ko'ring.",
		model.LangRu: "⚠️ Произошла ошибка. Попробуйте позже.",
	},
	Cancelled: {
		model.LangUz: "Bekor qilindi. Qaytadan boshlash: /start",
		model.LangRu: "Отменено. Начать заново: /start",
	},
	BtnCancel: {model.LangUz: "❌ Bekor qilish", model.LangRu: "❌ Отмена"},
	Outdated: {
		model.LangUz: "Bu tugma eskirgan. Qaytadan boshlash: /start",
		model.LangRu: "Эта кнопка устарела. Начать заново: /start",
	},
	PickFromList: {
		model.LangUz: "Iltimos, sanani ro'yxatdan tanlang.",
		model.LangRu: "Пожалуйста, выберите дату из списка.",
	},
	RelaySent: {
		model.LangUz: "✉️ Xabaringiz yuborildi. Tez orada javob beramiz.",
		model.LangRu: "✉️ Сообщение отправлено. Мы скоро ответим.",
	},
	MyRegistration: {
		model.LangUz: "Sizning ro'yxatingiz:\n\n📅 %s\n👤 %s\n📞 %s\n📍 %s\n🏢 %s",
		model.LangRu: "Ваша запись:\n\n📅 %s\n👤 %s\n📞 %s\n📍 %s\n🏢 %s",
	},
	NoRegistration: {
		model.LangUz: "Sizda hali ro'yxat yo'q. Boshlash: /start",
		model.LangRu: "У вас пока нет записи. Начать: /start",
	},
	NewRegistration: {
		model.LangUz: "🆕 Yangi ro'yxat #%d\n\n📅 %s\n👤 %s\n📞 %s\n📍 %s\n🏢 %s\n🔗 %s",
		model.LangRu: "🆕 Новая запись #%d\n\n📅 %s\n👤 %s\n📞 %s\n📍 %s\n🏢 %s\n🔗 %s",
	},
	RelayMessage: {
		model.LangUz: "💬 Foydalanuvchidan xabar %s (id %d):\n\n%s",
		model.LangRu: "💬 Сообщение от пользователя %s (id %d):\n\n%s",
	},
	BtnReply: {model.LangUz: "↩️ Javob berish", model.LangRu: "↩️ Ответить"},

	AdminMenu: {
		model.LangUz: "🛠 Admin panel",
		model.LangRu: "🛠 Панель администратора",
	},
	AccessDenied: {
		model.LangUz: "⛔ Ruxsat yo'q.",
		model.LangRu: "⛔ Доступ запрещён.",
	},
	BtnRegistrations: {model.LangUz: "📋 Ro'yxatlar", model.LangRu: "📋 Записи"},
	BtnDates:         {model.LangUz: "📅 Sanalar", model.LangRu: "📅 Даты"},
	BtnExport:        {model.LangUz: "📥 Excel eksport", model.LangRu: "📥 Экспорт в Excel"},
	BtnClear:         {model.LangUz: "🗑 Tozalash", model.LangRu: "🗑 Очистка"},
	BtnBack:          {model.LangUz: "⬅️ Orqaga", model.LangRu: "⬅️ Назад"},
	BtnAddDate:       {model.LangUz: "➕ Sana qo'shish", model.LangRu: "➕ Добавить даты"},
	BtnRemoveDate:    {model.LangUz: "➖ Sanani o'chirish", model.LangRu: "➖ Удалить дату"},
	BtnSave:          {model.LangUz: "💾 Saqlash", model.LangRu: "💾 Сохранить"},
	BtnConfirm:       {model.LangUz: "✅ Tasdiqlash", model.LangRu: "✅ Подтвердить"},
	BtnClearRegs:     {model.LangUz: "🗑 Ro'yxatlarni o'chirish", model.LangRu: "🗑 Удалить записи"},
	BtnClearDates:    {model.LangUz: "🗑 Sanalarni o'chirish", model.LangRu: "🗑 Удалить даты"},
	BtnPrev:          {model.LangUz: "◀️", model.LangRu: "◀️"},
	BtnNext:          {model.LangUz: "▶️", model.LangRu: "▶️"},
	RegistrationsPage: {
		model.LangUz: "📋 Ro'yxatlar (%d-%d / %d):",
		model.LangRu: "📋 Записи (%d-%d из %d):",
	},
	RegistrationsEmpty: {
		model.LangUz: "Ro'yxatlar yo'q.",
		model.LangRu: "Записей нет.",
	},
	RegistrationLine: {
		model.LangUz: "#%d %s | %s | %s | %s",
		model.LangRu: "#%d %s | %s | %s | %s",
	},
	DatesMenu: {
		model.LangUz: "📅 Sanalar:\n%s",
		model.LangRu: "📅 Даты:\n%s",
	},
	DateLineFree: {
		model.LangUz: "📅 %s: bo'sh",
		model.LangRu: "📅 %s: свободна",
	},
	DateLineBooked: {
		model.LangUz: "✅ %s: %s, %s",
		model.LangRu: "✅ %s: %s, %s",
	},
	DateLineInactive: {
		model.LangUz: "⏸ %s: o'chirilgan",
		model.LangRu: "⏸ %s: отключена",
	},
	PickDates: {
		model.LangUz: "Kalendardan sanalarni tanlang, so'ng \"Saqlash\"ni bosing.",
		model.LangRu: "Выберите даты в календаре и нажмите «Сохранить».",
	},
	DateSelected: {
		model.LangUz: "✅ %s tanlandi. Jami: %d",
		model.LangRu: "✅ %s выбрана. Всего: %d",
	},
	DateAlreadyPicked: {
		model.LangUz: "%s allaqachon tanlangan.",
		model.LangRu: "%s уже выбрана.",
	},
	NoDatesSelected: {
		model.LangUz: "Hech qanday sana tanlanmagan.",
		model.LangRu: "Не выбрано ни одной даты.",
	},
	DatesSaved: {
		model.LangUz: "💾 Qo'shildi: %d. Avvaldan mavjud: %d.",
		model.LangRu: "💾 Добавлено: %d. Уже существовало: %d.",
	},
	RemovePrompt: {
		model.LangUz: "O'chiriladigan sanani tanlang:",
		model.LangRu: "Выберите дату для удаления:",
	},
	DateRemoved: {
		model.LangUz: "🗑 %s o'chirildi.",
		model.LangRu: "🗑 %s удалена.",
	},
	NoActiveDates: {
		model.LangUz: "Faol sanalar yo'q.",
		model.LangRu: "Активных дат нет.",
	},
	ReplyPrompt: {
		model.LangUz: "Foydalanuvchiga (id %d) javob matnini yuboring:",
		model.LangRu: "Отправьте текст ответа пользователю (id %d):",
	},
	ReplySent: {
		model.LangUz: "✅ Javob yuborildi.",
		model.LangRu: "✅ Ответ отправлен.",
	},
	ReplyFailed: {
		model.LangUz: "⚠️ Javobni yetkazib bo'lmadi.",
		model.LangRu: "⚠️ Не удалось доставить ответ.",
	},
	ReplyEmpty: {
		model.LangUz: "Bo'sh javob yuborilmadi.",
		model.LangRu: "Пустой ответ не отправлен.",
	},
	ExportConfirm: {
		model.LangUz: "%d ta ro'yxat Excel faylga eksport qilinadi. Ma'lumotlar bazada saqlanib qoladi. Davom etasizmi?",
		model.LangRu: "Будет выгружено записей: %d. Данные останутся в базе. Продолжить?",
	},
	NothingToExport: {
		model.LangUz: "Eksport qilish uchun ma'lumot yo'q.",
		model.LangRu: "Нет данных для экспорта.",
	},
	ExportCaption: {
		model.LangUz: "📊 Ro'yxatlar: %d",
		model.LangRu: "📊 Записей: %d",
	},
	ExportFailed: {
		model.LangUz: "⚠️ Eksportda xatolik.",
		model.LangRu: "⚠️ Ошибка экспорта.",
	},
	ClearMenu: {
		model.LangUz: "Nimani tozalash kerak?",
		model.LangRu: "Что очистить?",
	},
	ClearRegsConfirm: {
		model.LangUz: "Barcha %d ta ro'yxat o'chiriladi. Bu amalni qaytarib bo'lmaydi. Tasdiqlaysizmi?",
		model.LangRu: "Все записи (%d) будут удалены безвозвратно. Подтвердить?",
	},
	ClearDatesConfirm: {
		model.LangUz: "Barcha sanalar o'chiriladi. Tasdiqlaysizmi?",
		model.LangRu: "Все даты будут удалены. Подтвердить?",
	},
	RegsCleared: {
		model.LangUz: "🗑 O'chirildi: %d ta ro'yxat.",
		model.LangRu: "🗑 Удалено записей: %d.",
	},
	DatesCleared: {
		model.LangUz: "🗑 O'chirildi: %d ta sana.",
		model.LangRu: "🗑 Удалено дат: %d.",
	},
}

// T returns the text for key in lang, formatted with args. Unknown keys
// render as the key itself.
func T(lang model.Language, key Key, args ...any) string {
	entry, ok := catalog[key]
	if !ok {
		return string(key)
	}
	tmpl, ok := entry[lang.OrDefault()]
	if !ok {
		tmpl = entry[model.DefaultLanguage]
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

var months = map[model.Language][12]string{
	model.LangUz: {"Yanvar", "Fevral", "Mart", "Aprel", "May", "Iyun", "Iyul", "Avgust", "Sentabr", "Oktabr", "Noyabr", "Dekabr"},
	model.LangRu: {"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь", "Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь"},
}

var weekdays = map[model.Language][7]string{
	model.LangUz: {"Du", "Se", "Ch", "Pa", "Ju", "Sh", "Ya"},
	model.LangRu: {"Пн", "Вт", "Ср", "Чт", "Пт", "Сб", "Вс"},
}

// Month returns the month name, m in 1..12.
func Month(lang model.Language, m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return months[lang.OrDefault()][m-1]
}

// Weekdays returns Monday-first short weekday names.
func Weekdays(lang model.Language) [7]string {
	return weekdays[lang.OrDefault()]
}
