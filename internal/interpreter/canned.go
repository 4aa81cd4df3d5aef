package interpreter

// Fixed responses. They are spoken verbatim, so wording changes are user
// visible.
const (
	replyEmpty = "I didn't catch that. Could you please repeat your question?"

	replySummaryUnavailable = "I'm sorry, I'm having trouble accessing real-time market data right now. Please try again later."

	replyBitcoinStale = "Bitcoin is currently trading at $67,234. It's up 2.34% today. Based on recent market trends, Bitcoin shows strong bullish momentum with support at $65,000."

	replyEthereumStale = "Ethereum is currently at $3,456. The network has been showing strong development activity with upcoming upgrades that could positively impact price."

	replyAssetUnavailable = "I'm sorry, I couldn't get the latest %s price right now. Please try again later."

	replyPortfolio = "Your portfolio is performing well with a 12.5% gain this month. Your Bitcoin holdings are up 8% and Ethereum is up 15%. Consider rebalancing if you're overweight in any single asset."

	replyBIT10 = "BIT10 index funds are showing strong performance. BIT10.TOP is up 18% this quarter, focusing on large-cap cryptocurrencies. Would you like me to explain the composition?"

	replyGreeting = "Hello! I'm your BIT10 AI assistant. I can help you with real-time crypto market data, portfolio analysis, and investment insights. Try asking me for a market summary or about specific cryptocurrencies like Bitcoin or Ethereum."

	summaryOpening = "Here's today's crypto market summary: "

	summaryQuiet = "No major cryptocurrency has moved more than 5% in the last 24 hours"

	summaryClosing = ". The overall market sentiment appears to be mixed with significant volatility across major cryptocurrencies."

	systemPrompt = "You are the BIT10 AI assistant, a voice assistant inside a crypto dashboard. " +
		"Answer in at most three short spoken sentences, without markdown or lists. " +
		"You cannot see live prices unless they are given to you; never invent figures. " +
		"Do not give personalised financial advice."
)
