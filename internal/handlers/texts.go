package handlers

const (
	msgWelcome = "🎉 Welcome to TD Bot!"

	msgTimedOut  = "⏰ Timed out. Operation cancelled."
	msgCancelled = "❌ Operation cancelled."

	msgRecorded = "✅ Activity recorded successfully!"
	msgUpdated  = "✅ Activity updated successfully!"

	msgStoreFailure = "❌ Something went wrong. Please try again."

	msgNoActivities = "❌ No activities found."
	msgNotAdmin     = "❌ You are not authorized to use this command."

	msgAskVillageName  = "✏️ Enter the village name:"
	msgAskPurposeText  = "📝 Enter the purpose of your visit:"
	msgAskHeadquarters = "🏢 Enter your headquarters name:"
	msgAskRole         = "👤 Enter your role/designation:"
	msgAskDefPurpose   = "🎯 Enter the default purpose to use for automatic entries:"
	msgAskNewActivity  = "📋 Enter the new activity label:"
	msgAskEditDate     = "📅 Enter the date to edit (DD/MM/YYYY):"

	msgBadDate    = "❌ Invalid date format. Please use DD/MM/YYYY."
	msgBadVillage = "❌ Invalid village name. Use letters, digits and spaces only."
	msgBadTime    = "❌ Invalid format. Please use HH:MM (e.g., 19:30)."

	msgAskVillageFile = "📁 Please upload an Excel (.xlsx) or CSV (.csv) file with your villages. The file must have a column named 'Village'."
	msgAskHolidayFile = "📅 Please upload an Excel (.xlsx) or CSV (.csv) file with your public holidays.\n\nThe file must have 'Date' and 'Holiday' columns."

	btnManualEntry = "✏️ Manual Entry"
	btnCancel      = "❌ Cancel"
)
