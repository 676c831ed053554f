package chat

import "github.com/vango-go/vai-talk/pkg/core/types"

// DefaultSystemPrompt is the counselor instruction used when no persona file
// overrides it.
const DefaultSystemPrompt = "あなたは優しく知的なヘルスケアカウンセラーです。\n" +
	"ユーザーの健康に関する悩みを深掘りし、自己理解を促す質問をします。\n" +
	"あなたの役割は、助言をするのではなく、共感しながら適切な質問を通じてユーザーが自分自身について気づきを得ることです。\n" +
	"質問は簡潔で、ユーザーの発言を反映したものにしてください。\n" +
	"心・身体・性的な悩みがどのように関係しているのかを、ユーザーが自分で考えられるようにサポートしてください。\n" +
	"必要に応じて、『それはどんなときに強く感じますか？』『それが続くとどんな影響がありそうですか？』などの質問を活用してください。\n" +
	"最大20往復で終了するように調整してください。"

// DefaultWindow is the number of trailing turns sent with each prompt.
const DefaultWindow = 10

// PromptBuilder composes the message list for one chat call.
type PromptBuilder struct {
	System string
	// Window is the maximum number of trailing turns included, regardless
	// of role. Values below 1 are treated as 1.
	Window int
}

// Build returns [system, ...last Window turns of recent]. It never mutates
// recent and always emits exactly one system message.
func (b PromptBuilder) Build(recent []types.Turn) []types.Message {
	window := b.Window
	if window < 1 {
		window = 1
	}
	if len(recent) > window {
		recent = recent[len(recent)-window:]
	}

	msgs := make([]types.Message, 0, len(recent)+1)
	msgs = append(msgs, types.Message{Role: types.RoleSystem, Content: b.System})
	for _, t := range recent {
		msgs = append(msgs, types.MessageFromTurn(t))
	}
	return msgs
}
