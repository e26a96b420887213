package audio

import (
	"fmt"
	"io"
	"math/rand/v2"
	"sync"

	"github.com/roach88/mydays/internal/planner"
)

// Encouragements are shown when a task is completed.
var Encouragements = []string{
	"You're soooo smart",
	"I can't believe you did that! Just kidding. I knew you would",
	"Click it again. Just for fun. You won't",
	"Congratulations. We love you",
	"Phew! We were about to have an intervention about that one",
	"Amazing news!",
	"Good job! Now take two minutes to dance",
	"You're soooo cute",
	"I love when you click me!",
	"Nice! We've just paid you 5 dollars",
	"Please don't spam click just to see all the messages :(",
	"Delicious",
	"Extravagant",
	"That went swimmingly",
	"Wow... you're amazing",
	"I'm speechless",
	"You seem like a really cool person",
	"It's so admirable how much you care about people and things",
	"I just told everyone you did that",
	"That task never stood a chance.",
	"The other tasks must be so scared",
	"That was so satisfying I felt it too",
	"Very skillful click! You're getting this!",
	"All the other todo list apps are getting really jealous of your productivity. It's a problem",
	"Quack",
	"I bet that was pretty easy for you",
	"Now that you finished that, do you have time to be my friend?",
	"Hey. You. I'm really proud of you",
	"That task had a family",
	"Wait don't go yet. Just stay here for a second. Ok you can go",
	"Some of the other messages have an annoying tone. This one is just a pure, no-frills congratulations. I bet nobody orders black coffee anymore",
	"I've seen a lot of task in my life, and that one is arguably the most complete of all",
}

// Celebrator plays the configured sound and prints an encouragement when
// a task is completed. It implements planner.Celebrator and never blocks.
type Celebrator struct {
	player *Player
	out    io.Writer
	pick   func(n int) int

	mu    sync.Mutex
	sound string
}

var _ planner.Celebrator = (*Celebrator)(nil)

// NewCelebrator creates a Celebrator. A nil player is silent; a nil out
// prints nothing.
func NewCelebrator(player *Player, out io.Writer) *Celebrator {
	return &Celebrator{player: player, out: out, pick: rand.IntN}
}

// SetSound selects the sound played on completion.
func (c *Celebrator) SetSound(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sound = key
}

// Celebrate implements planner.Celebrator.
func (c *Celebrator) Celebrate(o planner.Occurrence) {
	c.mu.Lock()
	sound := c.sound
	c.mu.Unlock()

	if c.player != nil && sound != "" {
		c.player.Play(sound)
	}
	if c.out != nil {
		msg := Encouragements[c.pick(len(Encouragements))]
		fmt.Fprintf(c.out, "%s: %s\n", o.Title, msg)
	}
}
