package i18n

var english = map[Key]string{
	Menu: `Hi, I'm *Venille AI*, your private menstrual & sexual-health companion.

Reply with the *number* **or** the *words*:

1️⃣  Track my period
2️⃣  Log symptoms
3️⃣  Learn about sexual health
4️⃣  Order Venille Pads
5️⃣  View my cycle
6️⃣  View my symptoms
7️⃣  Change language
8️⃣  Give feedback / report a problem`,
	Fallback:             "Sorry, I didn't get that.\nType *menu* to see what I can do.",
	TrackPrompt:          "🩸 When did your last period start? (e.g. 12/05/2025)",
	LangPrompt:           "Type your preferred language (e.g. English, Hausa…)",
	SavedSymptom:         "Saved ✔︎ Send another, or type *done*.",
	AskReminder:          "✅ Saved! Your next period is likely around *{0}*.\nWould you like a reminder? (yes / no)",
	ReminderYes:          "🔔 Reminder noted! I'll message you a few days before.",
	ReminderNo:           "👍 No problem, ask me any time.",
	PeriodReminder:       "🩸 Heads up! Your next period is expected around *{0}*. Keep your pads close ❤️",
	InvalidDate:          "🙈 Please type the date like *12/05/2025*",
	NotValidDate:         "🤔 That doesn't look like a valid date.",
	SymptomsDone:         "✅ {0} symptom{1} saved. Feel better soon ❤️",
	SymptomsCancel:       "🚫 Cancelled.",
	SymptomsNothingSaved: "Okay, nothing saved.",
	SymptomPrompt:        "How are you feeling? Send one symptom at a time.\nWhen done, type *done* (or *cancel*).",
	EduTopics: `What topic?

1️⃣  STIs
2️⃣  Contraceptives
3️⃣  Consent
4️⃣  Hygiene during menstruation
5️⃣  Myths and Facts`,
	"eduTopic1": "*STIs*\nSexually transmitted infections spread through sexual contact. Many have no symptoms, so regular testing matters. Condoms greatly reduce the risk. See a health worker if you notice unusual discharge, sores or pain.",
	"eduTopic2": "*Contraceptives*\nOptions include condoms, pills, injectables, implants and IUDs. Condoms are the only method that also protects against STIs. A clinic can help you choose what suits you.",
	"eduTopic3": "*Consent*\nConsent is a clear, freely given yes. It can be withdrawn at any time, and silence is not consent. You never owe anyone sex.",
	"eduTopic4": "*Hygiene during menstruation*\nChange your pad every 4 to 6 hours, wash with clean water, and wash your hands before and after. Dispose of used pads wrapped, never in the toilet.",
	"eduTopic5": "*Myths and Facts*\nMyth: you can't bathe during your period. Fact: bathing is safe and helps with comfort. Myth: periods are dirty. Fact: menstruation is a normal, healthy process.",
	EduReadMore:          "📖 Read more:\n{0}",
	LanguageSet:          "🔤 Language set to *{0}*.",
	NoPeriod:             "No period date recorded yet.",
	CycleInfo:            "📅 *Your cycle info:*\n• Last period: *{0}*\n• Predicted next: *{1}*",
	NoSymptoms:           "No symptoms logged yet.",
	SymptomsHistory:      "*Your symptom history (last 5):*\n{0}",
	FeedbackQ1:           "Did you have access to sanitary pads this month?\n1. Yes   2. No",
	FeedbackQ2:           `Thanks. What challenges did you face? (or type "skip")`,
	FeedbackThanks:       "❤️  Feedback noted, thank you!",
	OrderQuantityPrompt:  "How many packs of *Venille Pads* would you like to order?",
	OrderQuantityInvalid: "Please enter a *number* between 1 and 99, e.g. 3",
	OrderConfirmation: `✅ Your order for *{0} pack{1}* has been forwarded.

Tap the link below to chat directly with our sales team and confirm delivery:
{2}

Thank you for choosing Venille!`,
	OrderVendorMessage: `🆕 *Venille Pads order*

From : {0}
JID  : {1}
Qty  : {2} pack{3}

(Please contact the customer to arrange delivery.)`,
}

var hausa = map[Key]string{
	Menu: `Sannu, ni ce *Venille AI*, abokiyar lafiyar jinin haila da dangantakar jima'i.

Zaɓi daga cikin waɗannan:

1️⃣  Bi jinin haila
2️⃣  Rubuta alamomin rashin lafiya
3️⃣  Koyi game da lafiyar jima'i
4️⃣  Yi odar Venille Pads
5️⃣  Duba zagayen haila
6️⃣  Duba alamun rashin lafiya
7️⃣  Sauya harshe
8️⃣  Bayar da ra'ayi / rahoto matsala`,
	Fallback:             "Yi hakuri, ban gane ba.\nRubuta *menu* don ganin abin da zan iya yi.",
	TrackPrompt:          "🩸 Yaushe ne lokacin farkon jinin haila na ƙarshe? (e.g. 12/05/2025)",
	LangPrompt:           "Rubuta harshen da kake so (misali: English, Hausa…)",
	SavedSymptom:         "An ajiye ✔︎ Aika wani ko rubuta *done*.",
	AskReminder:          "✅ An ajiye! Ana sa ran haila na gaba ne kusa da *{0}*.\nKana son aiko maka da tunatarwa? (ee / a'a)",
	ReminderYes:          "🔔 Tunatarwa ta samu! Zan aiko maka saƙo 'yan kwanakin kafin.",
	ReminderNo:           "👍 Babu damuwa, tambayi ni a kowane lokaci.",
	PeriodReminder:       "🩸 Tunatarwa! Ana sa ran haila na gaba kusa da *{0}*.",
	InvalidDate:          "🙈 Da fatan za a rubuta kwanan wata kamar *12/05/2025*",
	NotValidDate:         "🤔 Wannan bai yi kama da kwanan wata mai kyau ba.",
	SymptomsDone:         "✅ An ajiye alama {0}{1}. Da fatan kawo maki sauki ❤️",
	SymptomsCancel:       "🚫 An soke.",
	SymptomsNothingSaved: "To, ba a adana komai ba.",
	SymptomPrompt:        "Yaya jikin ki? Aika alama guda ɗaya a kowane lokaci.\nIn an gama, rubuta *done* (ko *cancel*).",
	EduTopics: `Wane batun?

1️⃣  Cutar STIs
2️⃣  Hanyoyin Dakile Haihuwa
3️⃣  Yarda
4️⃣  Tsabta yayin jinin haila
5️⃣  Karin Magana da Gaskiya`,
	LanguageSet:          "🔤 An saita harshe zuwa *{0}*.",
	NoPeriod:             "Ba a yi rijistar kwanan haila ba har yanzu.",
	CycleInfo:            "📅 *Bayanin zagayen haila:*\n• Haila na ƙarshe: *{0}*\n• Ana hasashen na gaba: *{1}*",
	NoSymptoms:           "Ba a rubuta alamun rashin lafiya ba har yanzu.",
	SymptomsHistory:      "*Tarihin alamun rashin lafiyarki (na ƙarshe 5):*\n{0}",
	FeedbackQ1:           "Shin kun samu damar samun sanitary pads a wannan watan?\n1. Ee   2. A'a",
	FeedbackQ2:           `Na gode. Wane irin kalubale kuka fuskanta? (ko rubuta "skip")`,
	FeedbackThanks:       "❤️  An lura da ra'ayin ku, na gode!",
	OrderQuantityPrompt:  "Kwunnan *Venille Pads* nawa kuke son siyan?",
	OrderQuantityInvalid: "Da fatan a shigar da *lambar* tsakanin 1 da 99, misali 3",
	OrderConfirmation: `✅ An aika odar ku ta *kwunan {0}{1}*.

Danna wannan hanyar don tattaunawa kai tsaye da ma'aikatan sayarwarmu don tabbatar da isar:
{2}

Mun gode da zaɓen Venille!`,
	OrderVendorMessage: `🆕 *Odar Venille Pads*

Daga : {0}
JID  : {1}
Adadi: {2} kwunan{3}

(Da fatan a tuntuɓi masoyi don shirya isar da shi.)`,
}
